package storage

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"rateScope/internal/model"
)

func sampleRecord(asset string) model.QuoteRecord {
	return model.QuoteRecord{
		Name:          "USDC",
		Pool:          "0x01",
		Asset:         asset,
		Utilization:   "500000000000000000",
		RatePerSecond: "2067743167",
		BorrowAPR:     0.0643,
		SupplyAPY:     0.0332,
		BorrowAPRText: "6.43%",
		SupplyAPYText: "3.32%",
		QuotedAt:      time.Unix(1_700_000_000, 0).UTC(),
	}
}

func TestJsonlStorageAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "quotes.jsonl")
	store := NewJsonlStorage(path)
	ctx := context.Background()

	require.NoError(t, store.PutQuoteBatch(ctx, []model.QuoteRecord{sampleRecord("0xa")}))
	require.NoError(t, store.PutQuoteBatch(ctx, []model.QuoteRecord{sampleRecord("0xb"), sampleRecord("0xc")}))
	require.NoError(t, store.PutQuoteBatch(ctx, nil))

	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()

	var assets []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var rec model.QuoteRecord
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &rec))
		assets = append(assets, rec.Asset)
	}
	require.Equal(t, []string{"0xa", "0xb", "0xc"}, assets)
}

func TestJsonlWriter(t *testing.T) {
	var buf bytes.Buffer
	store := NewJsonlWriter(&buf)
	require.NoError(t, store.PutQuoteBatch(context.Background(), []model.QuoteRecord{sampleRecord("0xa")}))
	require.Contains(t, buf.String(), `"rate_per_second":"2067743167"`)
	require.True(t, bytes.HasSuffix(buf.Bytes(), []byte("\n")))
}

func TestJsonlStorageCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	store := NewJsonlStorage(filepath.Join(t.TempDir(), "quotes.jsonl"))
	require.ErrorIs(t, store.PutQuoteBatch(ctx, []model.QuoteRecord{sampleRecord("0xa")}), context.Canceled)
}
