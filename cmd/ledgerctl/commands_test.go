package main

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/content-ledger/pkg/contentledger"
)

func TestParseShares(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    []contentledger.ContributionShare
		wantErr bool
	}{
		{"empty", nil, []contentledger.ContributionShare{}, false},
		{"two holders", []string{"alice=60", "bob=40"}, []contentledger.ContributionShare{
			{Holder: "alice", Percentage: 60},
			{Holder: "bob", Percentage: 40},
		}, false},
		{"missing separator", []string{"alice"}, nil, true},
		{"missing holder", []string{"=100"}, nil, true},
		{"not a number", []string{"alice=lots"}, nil, true},
		{"out of range", []string{"alice=256"}, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseShares(tt.args)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return strings.TrimSpace(out.String()), err
}

func TestCommands_EndToEnd(t *testing.T) {
	store := "sqlite://" + filepath.Join(t.TempDir(), "ledger.db")

	root, err := run(t, "create", "--store", store, "--as", "alice", "--title", "song")
	require.NoError(t, err)
	_, err = contentledger.ParseKey(root)
	require.NoError(t, err)

	fork, err := run(t, "fork", root, "--store", store, "--as", "bob", "--title", "remix")
	require.NoError(t, err)

	out, err := run(t, "merge", root, "--store", store, "--as", "alice",
		"--title", "song v2", "--share", "alice=60", "--share", "bob=40")
	require.NoError(t, err)
	var entry contentledger.Entry
	require.NoError(t, json.Unmarshal([]byte(out), &entry))
	assert.Equal(t, uint32(2), entry.Record.Version)
	assert.Len(t, entry.Shares, 2)

	out, err = run(t, "forks", root, "--store", store)
	require.NoError(t, err)
	assert.Equal(t, fork, out)

	out, err = run(t, "lineage", fork, "--store", store)
	require.NoError(t, err)
	assert.Equal(t, fork+"\n"+root, out)

	_, err = run(t, "merge", root, "--store", store, "--as", "mallory", "--share", "mallory=100")
	assert.ErrorIs(t, err, contentledger.ErrUnauthorized)
}
