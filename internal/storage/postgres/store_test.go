package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"rateScope/internal/model"
)

func TestNewStoreRequiresDSN(t *testing.T) {
	_, err := NewStore(context.Background(), "")
	require.Error(t, err)
}

func TestLatestQuoteRequiresRef(t *testing.T) {
	s := &Store{}
	_, _, err := s.LatestQuote(context.Background(), model.AssetRef{Pool: "0x01"})
	require.Error(t, err)
}

func TestPutQuoteBatchEmpty(t *testing.T) {
	s := &Store{}
	require.NoError(t, s.PutQuoteBatch(context.Background(), nil))
}
