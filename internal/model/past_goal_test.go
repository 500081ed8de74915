package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProofListStoresPathsNotURLs(t *testing.T) {
	edt := time.FixedZone("EDT", -4*60*60)
	list := ProofList{{
		ID:          "h1",
		CompletedAt: time.Date(2026, 10, 17, 22, 0, 0, 0, edt),
		StoragePath: "proofs/u1/1_p.jpg",
		ProofURL:    "https://bucket.s3.amazonaws.com/proofs/u1/1_p.jpg?X-Amz-Expires=604800",
	}}

	value, err := list.Value()
	require.NoError(t, err)
	assert.NotContains(t, value, "X-Amz-Expires")
	assert.Contains(t, value, `"storage_path":"proofs/u1/1_p.jpg"`)
	assert.Contains(t, value, `"date":"2026-10-18T02:00:00Z"`)

	var scanned ProofList
	require.NoError(t, scanned.Scan(value))
	require.Len(t, scanned, 1)
	assert.Equal(t, "h1", scanned[0].ID)
	assert.Equal(t, "proofs/u1/1_p.jpg", scanned[0].StoragePath)
	assert.Empty(t, scanned[0].ProofURL)
	assert.True(t, list[0].CompletedAt.Equal(scanned[0].CompletedAt))
}
