package s3_test

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/content-ledger/pkg/contentledger"
	s3store "github.com/tendant/content-ledger/pkg/contentledger/store/s3"
	"github.com/tendant/content-ledger/pkg/contentledger/storetest"
)

// fakeClient is an in-memory bucket honouring If-Match and If-None-Match.
type fakeClient struct {
	mu       sync.Mutex
	objects  map[string][]byte
	etags    map[string]string
	nextETag int
	pageSize int
	buckets  map[string]bool
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		objects:  make(map[string][]byte),
		etags:    make(map[string]string),
		pageSize: 2,
		buckets:  make(map[string]bool),
	}
}

func (c *fakeClient) GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := aws.ToString(params.Key)
	value, ok := c.objects[key]
	if !ok {
		return nil, &types.NoSuchKey{Message: aws.String("no such key")}
	}
	return &s3.GetObjectOutput{
		Body: io.NopCloser(bytes.NewReader(append([]byte(nil), value...))),
		ETag: aws.String(c.etags[key]),
	}, nil
}

func (c *fakeClient) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	body, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	key := aws.ToString(params.Key)
	current, exists := c.etags[key]
	if params.IfNoneMatch != nil && exists {
		return nil, &smithy.GenericAPIError{Code: "PreconditionFailed", Message: "At least one of the pre-conditions you specified did not hold"}
	}
	if params.IfMatch != nil && (!exists || aws.ToString(params.IfMatch) != current) {
		return nil, &smithy.GenericAPIError{Code: "PreconditionFailed", Message: "At least one of the pre-conditions you specified did not hold"}
	}
	c.nextETag++
	etag := strconv.Quote(fmt.Sprintf("etag-%d", c.nextETag))
	c.objects[key] = body
	c.etags[key] = etag
	return &s3.PutObjectOutput{ETag: aws.String(etag)}, nil
}

func (c *fakeClient) ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	prefix := aws.ToString(params.Prefix)
	var keys []string
	for key := range c.objects {
		if strings.HasPrefix(key, prefix) && key > aws.ToString(params.ContinuationToken) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	out := &s3.ListObjectsV2Output{IsTruncated: aws.Bool(false)}
	if len(keys) > c.pageSize {
		keys = keys[:c.pageSize]
		out.IsTruncated = aws.Bool(true)
		out.NextContinuationToken = aws.String(keys[len(keys)-1])
	}
	for _, key := range keys {
		out.Contents = append(out.Contents, types.Object{Key: aws.String(key)})
	}
	return out, nil
}

func (c *fakeClient) HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.buckets[aws.ToString(params.Bucket)] {
		return nil, &types.NotFound{}
	}
	return &s3.HeadBucketOutput{}, nil
}

func (c *fakeClient) CreateBucket(ctx context.Context, params *s3.CreateBucketInput, optFns ...func(*s3.Options)) (*s3.CreateBucketOutput, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.buckets[aws.ToString(params.Bucket)] = true
	return &s3.CreateBucketOutput{}, nil
}

func TestS3Store(t *testing.T) {
	storetest.Run(t, func(t *testing.T) contentledger.Store {
		return s3store.NewWithClient(newFakeClient(), "ledger", "")
	})
}

func TestS3Store_ScanIgnoresForeignObjects(t *testing.T) {
	ctx := context.Background()
	client := newFakeClient()
	client.objects["contents/not-hex"] = []byte("x")
	client.objects["contents/cafe"] = []byte("short hex name")
	client.objects["other/00"] = []byte("y")

	store := s3store.NewWithClient(client, "ledger", "")
	key := bytes.Repeat([]byte{0x01}, contentledger.KeySize)
	require.NoError(t, store.Insert(ctx, key, []byte("one")))

	var keys [][]byte
	require.NoError(t, store.Scan(ctx, func(k, v []byte) error {
		keys = append(keys, k)
		return nil
	}))
	assert.Equal(t, [][]byte{key}, keys)
}

func TestS3Store_ListForksWithForeignObjects(t *testing.T) {
	ctx := context.Background()
	client := newFakeClient()
	client.objects["contents/cafe"] = []byte("not a ledger entry")

	svc, err := contentledger.New(contentledger.WithStore(s3store.NewWithClient(client, "ledger", "")))
	require.NoError(t, err)

	root, err := svc.Create(ctx, "alice", contentledger.CreateContentRequest{Title: "root"})
	require.NoError(t, err)
	fork, err := svc.Fork(ctx, "bob", contentledger.ForkContentRequest{SourceKey: root, Title: "fork"})
	require.NoError(t, err)

	forks, err := svc.ListForks(ctx, root)
	require.NoError(t, err)
	assert.Equal(t, []contentledger.Key{fork}, forks)
}

func TestS3Store_UpdateRetriesOnETagChange(t *testing.T) {
	ctx := context.Background()
	client := newFakeClient()
	store := s3store.NewWithClient(client, "ledger", "custom/")
	require.NoError(t, store.Insert(ctx, []byte{0x02}, []byte{1}))

	calls := 0
	err := store.Update(ctx, []byte{0x02}, func(current []byte) ([]byte, error) {
		calls++
		if calls == 1 {
			// Simulate a concurrent writer sneaking in between read and write.
			client.mu.Lock()
			client.etags["custom/02"] = `"racer"`
			client.mu.Unlock()
		}
		return []byte{current[0] + 1}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)

	value, err := store.Get(ctx, []byte{0x02})
	require.NoError(t, err)
	assert.Equal(t, []byte{2}, value)
}

func TestS3Store_EnsureBucket(t *testing.T) {
	ctx := context.Background()
	client := newFakeClient()
	store := s3store.NewWithClient(client, "ledger", "")

	require.NoError(t, store.EnsureBucket(ctx, "eu-west-1"))
	assert.True(t, client.buckets["ledger"])

	// Second call finds the bucket and is a no-op.
	require.NoError(t, store.EnsureBucket(ctx, "eu-west-1"))
}

func TestNew_RequiresBucket(t *testing.T) {
	_, err := s3store.New(context.Background(), s3store.Config{})
	assert.EqualError(t, err, "bucket name is required")
}
