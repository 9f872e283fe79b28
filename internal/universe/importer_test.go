package universe

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sieng/factor-engine/internal/memstore"
	"github.com/sieng/factor-engine/pkg/logger"
)

const membershipCSV = `ticker,start_date,end_date,source
CAP.SN,2020-01-01,,ipsa_review
ILC.SN,2020-01-01,2023-06-30,ipsa_review
SMSAAM.SN,2021-03-15,,
`

func TestImport(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	importer := NewImporter(store, logger.NewNop())

	count, err := importer.Import(ctx, strings.NewReader(membershipCSV))
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	// ILC's interval closed mid-2023, so it is inactive afterwards.
	active, err := store.Universe().ActiveTickers(ctx, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, []string{"CAP.SN", "SMSAAM.SN"}, active)

	active, err = store.Universe().ActiveTickers(ctx, time.Date(2022, 1, 15, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, []string{"CAP.SN", "ILC.SN", "SMSAAM.SN"}, active)

	symbols, err := store.Universe().AllSymbols(ctx)
	require.NoError(t, err)
	assert.Len(t, symbols, 3)
}

func TestImportReimportUpdatesInterval(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	importer := NewImporter(store, logger.NewNop())

	_, err := importer.Import(ctx, strings.NewReader("ticker,start_date,end_date\nCAP.SN,2020-01-01,\n"))
	require.NoError(t, err)

	// The same interval re-imported with an end date closes it.
	_, err = importer.Import(ctx, strings.NewReader("ticker,start_date,end_date\nCAP.SN,2020-01-01,2024-01-31\n"))
	require.NoError(t, err)

	active, err := store.Universe().ActiveTickers(ctx, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestImportRejectsBadInput(t *testing.T) {
	ctx := context.Background()
	importer := NewImporter(memstore.New(), logger.NewNop())

	_, err := importer.Import(ctx, strings.NewReader("name,date\nfoo,2020-01-01\n"))
	assert.ErrorContains(t, err, "missing")

	_, err = importer.Import(ctx, strings.NewReader("ticker,start_date\nCAP.SN,01-01-2020\n"))
	assert.ErrorContains(t, err, "start_date")
}
