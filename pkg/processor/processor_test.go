package processor

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/clover/internal/repositories/tradeline"
	"github.com/Ramsey-B/clover/pkg/fingerprint"
	"github.com/Ramsey-B/clover/pkg/matching"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/normalize"
)

type fakeStore struct {
	rows      []models.Tradeline
	updateErr map[string]error
	findErr   error
	createErr error

	// when set, FindCandidates hides the stored rows to simulate a
	// concurrent batch inserting between the scan and the insert
	hideCandidates bool

	updates int
}

func (f *fakeStore) FindCandidates(ctx context.Context, ownerID string, q tradeline.CandidateQuery) ([]models.Tradeline, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	if f.hideCandidates {
		return nil, nil
	}
	var out []models.Tradeline
	for _, row := range f.rows {
		if row.OwnerID == ownerID {
			out = append(out, row)
		}
	}
	return out, nil
}

func (f *fakeStore) CreateBatch(ctx context.Context, tradelines []models.Tradeline) ([]string, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	existing := make(map[string]bool, len(f.rows))
	for _, row := range f.rows {
		existing[row.OwnerID+"|"+row.Fingerprint] = true
	}
	var inserted []string
	for _, t := range tradelines {
		key := t.OwnerID + "|" + t.Fingerprint
		if existing[key] {
			continue
		}
		existing[key] = true
		f.rows = append(f.rows, t)
		inserted = append(inserted, t.ID)
	}
	return inserted, nil
}

func (f *fakeStore) Update(ctx context.Context, ownerID, id string, update *models.TradelineUpdate) error {
	if err := f.updateErr[id]; err != nil {
		return err
	}
	f.updates++
	for i := range f.rows {
		if f.rows[i].ID == id && f.rows[i].OwnerID == ownerID {
			f.rows[i] = update.Apply(f.rows[i])
			return nil
		}
	}
	return errors.New("tradeline not found")
}

// likeStore narrows candidates the way the SQL repository does: a capped
// creditor token list matched as substrings, plus the account prefix.
type likeStore struct {
	fakeStore
}

func (f *likeStore) FindCandidates(ctx context.Context, ownerID string, q tradeline.CandidateQuery) ([]models.Tradeline, error) {
	tokens := q.CreditorTokens
	if len(tokens) > 3 {
		tokens = tokens[:3]
	}
	var out []models.Tradeline
	for _, row := range f.rows {
		if row.OwnerID != ownerID {
			continue
		}
		name := strings.ToLower(row.CreditorName)
		matched := false
		for _, tok := range tokens {
			if strings.Contains(name, strings.ToLower(tok)) {
				matched = true
				break
			}
		}
		if !matched && q.AccountPrefix != "" && strings.HasPrefix(row.AccountNumber, q.AccountPrefix) {
			matched = true
		}
		if matched {
			out = append(out, row)
		}
	}
	return out, nil
}

type fakeEmitter struct {
	created  []string
	enriched []string
	batches  []models.BatchResult
}

func (f *fakeEmitter) EmitTradelineCreated(ctx context.Context, t *models.Tradeline, documentID string) {
	f.created = append(f.created, t.ID)
}

func (f *fakeEmitter) EmitTradelineEnriched(ctx context.Context, t *models.Tradeline, documentID string) {
	f.enriched = append(f.enriched, t.ID)
}

func (f *fakeEmitter) EmitBatchCompleted(ctx context.Context, ownerID, documentID string, result *models.BatchResult) {
	f.batches = append(f.batches, *result)
}

func newTestProcessor(store Store) (*Processor, *fakeEmitter) {
	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
	normalizer := normalize.New()
	engine := matching.NewEngine(logger, matching.NewComparator(normalizer), matching.DefaultThresholds())
	emitter := &fakeEmitter{}
	return NewProcessor(logger, store, engine, normalizer, emitter), emitter
}

func seedTradeline(ownerID, id, creditor, account string, bureau models.Bureau) models.Tradeline {
	t := models.Tradeline{
		ID:            id,
		OwnerID:       ownerID,
		CreditorName:  creditor,
		AccountNumber: account,
		CreditBureau:  bureau,
	}
	t.Fingerprint = fingerprint.Generate(normalize.New(), &t)
	return t
}

func TestProcessor_ProcessBatch_InsertsNewLines(t *testing.T) {
	store := &fakeStore{}
	proc, emitter := newTestProcessor(store)

	raws := []models.RawTradeline{
		{CreditorName: "Chase Bank", AccountNumber: "1234567890", CreditBureau: "equifax"},
		{CreditorName: "Wells Fargo", AccountNumber: "5555666677", CreditBureau: "transunion"},
	}

	result, err := proc.ProcessBatch(context.Background(), "user-1", "doc-1", raws)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Total)
	assert.Equal(t, 2, result.Inserted)
	assert.Zero(t, result.Updated)
	assert.Zero(t, result.SkippedInvalid)
	assert.Zero(t, result.SkippedDuplicate)
	assert.Empty(t, result.Errors)

	assert.Len(t, store.rows, 2)
	assert.Len(t, emitter.created, 2)
	require.Len(t, emitter.batches, 1)
	assert.Equal(t, *result, emitter.batches[0])
}

func TestProcessor_ProcessBatch_FoldsIntraBatchDuplicates(t *testing.T) {
	store := &fakeStore{}
	proc, emitter := newTestProcessor(store)

	raws := []models.RawTradeline{
		{CreditorName: "Chase Bank", AccountNumber: "****1234", CreditBureau: "equifax"},
		{CreditorName: "JPMorgan Chase", AccountNumber: "xxxx-xxxx-xxxx-1234", CreditBureau: "equifax", AccountBalance: "$500"},
	}

	result, err := proc.ProcessBatch(context.Background(), "user-1", "doc-1", raws)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Inserted)
	assert.Equal(t, 1, result.SkippedDuplicate)

	// the later duplicate's balance folded into the surviving line
	require.Len(t, store.rows, 1)
	require.True(t, store.rows[0].AccountBalance.IsSet())
	assert.True(t, store.rows[0].AccountBalance.Decimal.Equal(decimal.NewFromInt(500)))
	assert.Len(t, emitter.created, 1)
}

func TestProcessor_ProcessBatch_SkipsInvalidLines(t *testing.T) {
	store := &fakeStore{}
	proc, _ := newTestProcessor(store)

	raws := []models.RawTradeline{
		{CreditorName: "", AccountNumber: "1234567890"},
		{CreditorName: "   ", AccountNumber: "5555666677"},
		{CreditorName: "Chase Bank", AccountNumber: "1234567890", CreditBureau: "equifax"},
	}

	result, err := proc.ProcessBatch(context.Background(), "user-1", "doc-1", raws)
	require.NoError(t, err)
	assert.Equal(t, 2, result.SkippedInvalid)
	assert.Equal(t, 1, result.Inserted)
	require.Len(t, result.Errors, 2)
	assert.Contains(t, result.Errors[0], "line 0")
	assert.Contains(t, result.Errors[1], "line 1")
}

func TestProcessor_ProcessBatch_EnrichesStoredMatch(t *testing.T) {
	stored := seedTradeline("user-1", "existing-1", "Chase Bank", "1234567890", models.BureauEquifax)
	store := &fakeStore{rows: []models.Tradeline{stored}}
	proc, emitter := newTestProcessor(store)

	raws := []models.RawTradeline{
		{
			CreditorName:   "JPMorgan Chase",
			AccountNumber:  "1234567890",
			CreditBureau:   "equifax",
			AccountBalance: "$2,500.00",
			AccountStatus:  "open",
		},
	}

	result, err := proc.ProcessBatch(context.Background(), "user-1", "doc-1", raws)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Updated)
	assert.Zero(t, result.Inserted)

	require.Len(t, store.rows, 1)
	assert.True(t, store.rows[0].AccountBalance.IsSet())
	assert.Equal(t, models.StatusOpen, store.rows[0].AccountStatus)
	// the stored creditor name survives enrichment
	assert.Equal(t, "Chase Bank", store.rows[0].CreditorName)
	assert.Equal(t, []string{"existing-1"}, emitter.enriched)
}

func TestProcessor_ProcessBatch_ExactStoredDuplicateIsSkipped(t *testing.T) {
	stored := seedTradeline("user-1", "existing-1", "Chase Bank", "1234567890", models.BureauEquifax)
	store := &fakeStore{rows: []models.Tradeline{stored}}
	proc, emitter := newTestProcessor(store)

	raws := []models.RawTradeline{
		{CreditorName: "Chase Bank", AccountNumber: "1234567890", CreditBureau: "equifax"},
	}

	result, err := proc.ProcessBatch(context.Background(), "user-1", "doc-1", raws)
	require.NoError(t, err)
	assert.Equal(t, 1, result.SkippedDuplicate)
	assert.Zero(t, result.Inserted)
	assert.Zero(t, result.Updated)
	assert.Zero(t, store.updates)
	assert.Empty(t, emitter.enriched)
}

func TestProcessor_ProcessBatch_UpdateFailureDoesNotAbortBatch(t *testing.T) {
	stored := seedTradeline("user-1", "existing-1", "Chase Bank", "1234567890", models.BureauEquifax)
	store := &fakeStore{
		rows:      []models.Tradeline{stored},
		updateErr: map[string]error{"existing-1": errors.New("connection reset")},
	}
	proc, _ := newTestProcessor(store)

	raws := []models.RawTradeline{
		{CreditorName: "Chase Bank", AccountNumber: "1234567890", CreditBureau: "equifax", AccountBalance: "$100"},
		{CreditorName: "Wells Fargo", AccountNumber: "5555666677", CreditBureau: "transunion"},
	}

	result, err := proc.ProcessBatch(context.Background(), "user-1", "doc-1", raws)
	require.NoError(t, err)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "enrich failed")
	assert.Zero(t, result.Updated)
	assert.Equal(t, 1, result.Inserted)
}

func TestProcessor_ProcessBatch_RerunIsIdempotent(t *testing.T) {
	store := &fakeStore{}
	proc, _ := newTestProcessor(store)

	raws := []models.RawTradeline{
		{CreditorName: "Chase Bank", AccountNumber: "1234567890", CreditBureau: "equifax", AccountBalance: "$500"},
		{CreditorName: "Wells Fargo", AccountNumber: "5555666677", CreditBureau: "transunion"},
	}

	first, err := proc.ProcessBatch(context.Background(), "user-1", "doc-1", raws)
	require.NoError(t, err)
	assert.Equal(t, 2, first.Inserted)

	second, err := proc.ProcessBatch(context.Background(), "user-1", "doc-1", raws)
	require.NoError(t, err)
	assert.Zero(t, second.Inserted)
	assert.Zero(t, second.Updated)
	assert.Equal(t, 2, second.SkippedDuplicate)
	assert.Len(t, store.rows, 2)
}

func TestProcessor_ProcessBatch_ShortFormStoredCreditorIsRetrieved(t *testing.T) {
	// the stored row uses the short institution form and a masked account;
	// the incoming line has the long form plus three raw tokens, so only
	// the normalized token can reach it through the capped candidate query
	stored := seedTradeline("user-1", "existing-1", "BOA", "xxxx-xxxx-xxxx-1234", models.BureauEquifax)
	store := &likeStore{fakeStore: fakeStore{rows: []models.Tradeline{stored}}}
	proc, emitter := newTestProcessor(store)

	raws := []models.RawTradeline{
		{CreditorName: "Bank of America", AccountNumber: "4400-1234-5678-1234", CreditBureau: "equifax"},
	}

	result, err := proc.ProcessBatch(context.Background(), "user-1", "doc-1", raws)
	require.NoError(t, err)
	assert.Equal(t, 1, result.SkippedDuplicate)
	assert.Zero(t, result.Inserted)
	assert.Len(t, store.rows, 1)
	assert.Empty(t, emitter.created)
}

func TestProcessor_ProcessBatch_FingerprintRaceCountsAsDuplicate(t *testing.T) {
	stored := seedTradeline("user-1", "existing-1", "Chase Bank", "1234567890", models.BureauEquifax)
	store := &fakeStore{
		rows:           []models.Tradeline{stored},
		hideCandidates: true,
	}
	proc, emitter := newTestProcessor(store)

	raws := []models.RawTradeline{
		{CreditorName: "Chase Bank", AccountNumber: "1234567890", CreditBureau: "equifax"},
	}

	result, err := proc.ProcessBatch(context.Background(), "user-1", "doc-1", raws)
	require.NoError(t, err)
	assert.Equal(t, 1, result.SkippedDuplicate)
	assert.Zero(t, result.Inserted)
	assert.Empty(t, emitter.created)
	assert.Len(t, store.rows, 1)
}

func TestProcessor_ProcessBatch_CandidateLookupFailureIsFatal(t *testing.T) {
	store := &fakeStore{findErr: errors.New("db down")}
	proc, emitter := newTestProcessor(store)

	raws := []models.RawTradeline{
		{CreditorName: "Chase Bank", AccountNumber: "1234567890", CreditBureau: "equifax"},
	}

	_, err := proc.ProcessBatch(context.Background(), "user-1", "doc-1", raws)
	require.Error(t, err)
	assert.Empty(t, emitter.batches)
}

func TestProcessor_ProcessBatch_InsertFailureIsFatal(t *testing.T) {
	store := &fakeStore{createErr: errors.New("db down")}
	proc, _ := newTestProcessor(store)

	raws := []models.RawTradeline{
		{CreditorName: "Chase Bank", AccountNumber: "1234567890", CreditBureau: "equifax"},
	}

	_, err := proc.ProcessBatch(context.Background(), "user-1", "doc-1", raws)
	require.Error(t, err)
}
