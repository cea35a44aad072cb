package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/tradejournal/internal/dedup"
	"github.com/tradejournal/internal/instrument"
	"github.com/tradejournal/internal/models"
	"github.com/tradejournal/internal/statement"
)

var (
	ErrEmptyUpload = errors.New("uploaded statement is empty")
)

// FillStore is the persistence contract the import pipeline writes fills through
type FillStore interface {
	ExistingTradeHashes(userID uint, hashes []string) (map[string]bool, error)
	UpsertBatch(fills []models.Fill) error
}

// StatementRowStore is the persistence contract for the raw-row hash ledger
type StatementRowStore interface {
	ExistingRowHashes(userID uint, hashes []string) (map[string]bool, error)
	InsertBatch(rows []models.StatementRow) error
}

// ImportBatchStore is the persistence contract for import batch lifecycle
type ImportBatchStore interface {
	Create(batch *models.ImportBatch) error
	MarkSuccess(batch *models.ImportBatch) error
	MarkFailed(batch *models.ImportBatch, message string) error
}

// ConfigResolver resolves broker parsing configuration by broker name
type ConfigResolver interface {
	Resolve(ctx context.Context, broker string) (*models.BrokerConfig, error)
}

// ImportRequest describes one statement upload
type ImportRequest struct {
	UserID   uint
	Broker   string
	Filename string
	Comment  string
	Format   statement.Format
	Data     []byte
}

// ImportResult reports the outcome of one import batch
type ImportResult struct {
	ImportBatchID  string `json:"import_batch_id"`
	InsertedCount  int    `json:"inserted_count"`
	UpdatedCount   int    `json:"updated_count"`
	DuplicateCount int    `json:"duplicate_count"`
	SkippedCount   int    `json:"skipped_count"`
}

// ImportService turns uploaded broker statements into persisted fills:
// grid reading, header detection, instrument parsing, content-hash
// deduplication and chunked persistence.
type ImportService struct {
	fills   FillStore
	rows    StatementRowStore
	batches ImportBatchStore
	configs ConfigResolver
}

// NewImportService creates a new ImportService
func NewImportService(fills FillStore, rows StatementRowStore, batches ImportBatchStore, configs ConfigResolver) *ImportService {
	return &ImportService{fills: fills, rows: rows, batches: batches, configs: configs}
}

// Import runs one statement upload end to end. The returned result carries
// the batch id even on failure so callers can report it; persisted rows are
// never rolled back because content hashing makes a retry safe.
func (s *ImportService) Import(ctx context.Context, req *ImportRequest) (*ImportResult, error) {
	if len(req.Data) == 0 {
		return nil, ErrEmptyUpload
	}

	batch := &models.ImportBatch{
		PublicID: uuid.New().String(),
		UserID:   req.UserID,
		Broker:   req.Broker,
		Filename: req.Filename,
		Comment:  req.Comment,
		Status:   models.BatchStatusProcessing,
	}
	if err := s.batches.Create(batch); err != nil {
		return nil, fmt.Errorf("failed to create import batch: %w", err)
	}
	result := &ImportResult{ImportBatchID: batch.PublicID}

	cfg, err := s.configs.Resolve(ctx, req.Broker)
	if err != nil {
		return result, s.fail(batch, fmt.Errorf("failed to resolve broker config: %w", err))
	}

	format := req.Format
	if format == "" {
		if format, err = statement.DetectFormat(req.Filename); err != nil {
			return result, s.fail(batch, err)
		}
	}

	grid, err := statement.Read(req.Data, format)
	if err != nil {
		return result, s.fail(batch, err)
	}

	headerIdx, cols, err := grid.FindHeader()
	if err != nil {
		return result, s.fail(batch, err)
	}

	parsed := s.parseRows(cfg, grid.Rows[headerIdx+1:], cols, req)
	result.SkippedCount = parsed.skipped

	if err := s.persist(req, batch, parsed, result); err != nil {
		return result, s.fail(batch, err)
	}

	batch.InsertedCount = result.InsertedCount
	batch.UpdatedCount = result.UpdatedCount
	batch.DuplicateCount = result.DuplicateCount
	batch.SkippedCount = result.SkippedCount
	if err := s.batches.MarkSuccess(batch); err != nil {
		return result, fmt.Errorf("failed to finalize import batch: %w", err)
	}

	log.Printf("[Import] Batch %s: %d inserted, %d updated, %d duplicate, %d skipped",
		batch.PublicID, result.InsertedCount, result.UpdatedCount, result.DuplicateCount, result.SkippedCount)
	return result, nil
}

// parsedRow pairs a normalized fill with the raw line it came from
type parsedRow struct {
	fill    models.Fill
	rowHash string
	rawDesc string
}

type parsedRows struct {
	rows    []parsedRow
	skipped int
}

// parseRows classifies every data row. Row-scoped problems (bad dates,
// unparseable instruments, non-positive quantity or price) skip only that
// row; nothing at this stage can abort the import.
func (s *ImportService) parseRows(cfg *models.BrokerConfig, rows [][]string, cols *statement.ColumnMap, req *ImportRequest) *parsedRows {
	parser := instrument.NewParser(cfg)
	out := &parsedRows{}

	for _, row := range rows {
		desc := statement.Cell(row, cols.Description)
		dateCell := statement.Cell(row, cols.Date)
		timeCell := statement.Cell(row, cols.Time)
		amountCell := statement.Cell(row, cols.Amount)

		if desc == "" && dateCell == "" && amountCell == "" {
			continue
		}

		executedAt, err := statement.ParseRowTime(dateCell, timeCell)
		if err != nil {
			out.skipped++
			continue
		}

		inst := parser.Parse(desc)
		if inst.Quantity <= 0 {
			out.skipped++
			continue
		}

		price := inst.Price
		if price == 0 {
			amount, ok := statement.ParseAmount(amountCell)
			if !ok || amount == 0 {
				out.skipped++
				continue
			}
			mult := instrument.Multiplier(cfg, inst.InstrumentType, inst.Underlying)
			price = abs(amount) / (inst.Quantity * mult)
		}
		if price == 0 {
			out.skipped++
			continue
		}

		commissions, _ := statement.ParseAmount(statement.Cell(row, cols.Commissions))
		fees, _ := statement.ParseAmount(statement.Cell(row, cols.Fees))

		fill := models.Fill{
			UserID:           req.UserID,
			Broker:           req.Broker,
			InstrumentType:   inst.InstrumentType,
			UnderlyingSymbol: inst.Underlying,
			ContractCode:     inst.ContractCode,
			Expiry:           inst.Expiry,
			Strike:           inst.Strike,
			Right:            inst.Right,
			Side:             inst.Side,
			Quantity:         inst.Quantity,
			Price:            price,
			ExecutedAt:       executedAt,
			Commissions:      abs(commissions),
			Fees:             abs(fees),
		}
		fill.TradeHash = dedup.TradeHash(req.UserID, req.Broker, &fill)

		rowHash := dedup.RowHash(
			req.Broker, req.UserID,
			dateCell, timeCell,
			statement.Cell(row, cols.Ref),
			desc,
			amountCell,
			statement.Cell(row, cols.Balance),
		)

		out.rows = append(out.rows, parsedRow{fill: fill, rowHash: rowHash, rawDesc: desc})
	}
	return out
}

// persist runs both dedup domains and writes the surviving rows. Rows whose
// raw hash is known are dropped as duplicates; surviving fills upsert by
// trade hash, counting known hashes as updates.
func (s *ImportService) persist(req *ImportRequest, batch *models.ImportBatch, parsed *parsedRows, result *ImportResult) error {
	if len(parsed.rows) == 0 {
		return nil
	}

	rowHashes := make([]string, 0, len(parsed.rows))
	for _, r := range parsed.rows {
		rowHashes = append(rowHashes, r.rowHash)
	}
	existingRows, err := s.rows.ExistingRowHashes(req.UserID, rowHashes)
	if err != nil {
		return fmt.Errorf("dedup lookup failed: %w", err)
	}

	var (
		newRows    []models.StatementRow
		candidates []parsedRow
		seenInFile = make(map[string]bool)
	)
	for _, r := range parsed.rows {
		if existingRows[r.rowHash] || seenInFile[r.rowHash] {
			result.DuplicateCount++
			continue
		}
		seenInFile[r.rowHash] = true
		newRows = append(newRows, models.StatementRow{
			UserID:        req.UserID,
			Broker:        req.Broker,
			ImportBatchID: batch.ID,
			RowHash:       r.rowHash,
			Description:   r.rawDesc,
		})
		candidates = append(candidates, r)
	}

	if len(candidates) == 0 {
		return s.rows.InsertBatch(newRows)
	}

	tradeHashes := make([]string, 0, len(candidates))
	for _, r := range candidates {
		tradeHashes = append(tradeHashes, r.fill.TradeHash)
	}
	existingTrades, err := s.fills.ExistingTradeHashes(req.UserID, tradeHashes)
	if err != nil {
		return fmt.Errorf("dedup lookup failed: %w", err)
	}

	fills := make([]models.Fill, 0, len(candidates))
	for _, r := range candidates {
		r.fill.ImportBatchID = batch.ID
		fills = append(fills, r.fill)
		if existingTrades[r.fill.TradeHash] {
			result.UpdatedCount++
		} else {
			result.InsertedCount++
		}
	}

	if err := s.rows.InsertBatch(newRows); err != nil {
		return fmt.Errorf("failed to persist statement rows: %w", err)
	}
	if err := s.fills.UpsertBatch(fills); err != nil {
		return fmt.Errorf("failed to persist fills: %w", err)
	}
	return nil
}

func (s *ImportService) fail(batch *models.ImportBatch, cause error) error {
	if err := s.batches.MarkFailed(batch, cause.Error()); err != nil {
		log.Printf("[Import] Failed to mark batch %s failed: %v", batch.PublicID, err)
	}
	return cause
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
