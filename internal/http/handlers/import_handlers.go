package handlers

import (
	"context"
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/rogerio-castellano/warehouse-ledger/internal/models"
	"github.com/rogerio-castellano/warehouse-ledger/internal/repo"
	"github.com/rogerio-castellano/warehouse-ledger/internal/stock"
	"go.uber.org/zap"
)

const maxUploadBytes = 10 << 20

// parseCSV reads an "article,name,qty[,location]" supply list. Column
// order follows the header. Rows are read one line at a time; a row that
// does not parse is kept with ParseErr set so the batch reports it at its
// own index and the rest of the file still imports.
func parseCSV(data []byte) ([]stock.ImportEntry, error) {
	lines := strings.Split(strings.ReplaceAll(string(data), "\r\n", "\n"), "\n")

	next := 0
	for next < len(lines) && strings.TrimSpace(lines[next]) == "" {
		next++
	}
	if next == len(lines) {
		return nil, fmt.Errorf("invalid CSV header")
	}
	headers, err := readRow(lines[next])
	if err != nil {
		return nil, fmt.Errorf("invalid CSV header")
	}
	next++

	index := map[string]int{}
	for i, h := range headers {
		index[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, col := range []string{"article", "name", "qty"} {
		if _, ok := index[col]; !ok {
			return nil, fmt.Errorf("CSV header is missing the %q column", col)
		}
	}

	field := func(record []string, col string) string {
		i, ok := index[col]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	var entries []stock.ImportEntry
	for n := next; n < len(lines); n++ {
		if strings.TrimSpace(lines[n]) == "" {
			continue
		}
		record, err := readRow(lines[n])
		if err != nil {
			entries = append(entries, stock.ImportEntry{ParseErr: fmt.Errorf("line %d: %w", n+1, err)})
			continue
		}

		qty, err := parseQuantity(field(record, "qty"))
		entries = append(entries, stock.ImportEntry{
			SKU:      field(record, "article"),
			Name:     field(record, "name"),
			Quantity: qty,
			Location: field(record, "location"),
			ParseErr: err,
		})
	}
	return entries, nil
}

// readRow parses a single CSV line. A stray quote inside an unquoted field
// (5" pipe) is taken literally; a broken quoted field is an error.
func readRow(line string) ([]string, error) {
	record, err := rowReader(line, false).Read()
	if errors.Is(err, csv.ErrBareQuote) {
		record, err = rowReader(line, true).Read()
	}
	var parseErr *csv.ParseError
	if errors.As(err, &parseErr) {
		return nil, parseErr.Err
	}
	return record, err
}

func rowReader(line string, lazy bool) *csv.Reader {
	reader := csv.NewReader(strings.NewReader(line))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	reader.LazyQuotes = lazy
	return reader
}

// parseQuantity accepts whole pack counts written as "12", "12.0", "12,0"
// or "1 200".
func parseQuantity(raw string) (int64, error) {
	s := strings.ReplaceAll(strings.TrimSpace(raw), " ", "")
	if s == "" {
		return 0, errors.New("missing quantity")
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, nil
	}

	f, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || math.Abs(f) > 1<<53 {
		return 0, fmt.Errorf("invalid quantity %q", raw)
	}
	if f != math.Trunc(f) {
		return 0, fmt.Errorf("invalid quantity %q: not a whole number", raw)
	}
	return int64(f), nil
}

// ImportHandler godoc
// @Summary Import a supply batch
// @Description Each entry is committed as its own import event. Malformed entries are reported and skipped.
// @Tags import
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param batch body ImportRequest true "Entries to import"
// @Success 200 {object} stock.BatchResult
// @Failure 400 {string} string "Invalid input"
// @Router /imports [post]
func ImportHandler(w http.ResponseWriter, r *http.Request) {
	var req ImportRequest
	if err := readJSON(w, r, &req); err != nil {
		http.Error(w, "invalid input", http.StatusBadRequest)
		return
	}
	if len(req.Entries) == 0 {
		http.Error(w, "no entries to import", http.StatusBadRequest)
		return
	}

	result, err := stockService.ImportBatch(r.Context(), req.Entries, uuid.NewString(), actor(r))
	if err != nil {
		logger.Warn("⚠️ import interrupted", zap.String("batch_id", result.BatchID), zap.Error(err))
	}
	respond(w, http.StatusOK, result)
}

// ImportCSVHandler godoc
// @Summary Import a supply list via CSV
// @Description Columns: article, name, qty and an optional location. Uploading the same file twice is rejected.
// @Tags import
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param file formData file true "CSV file"
// @Success 200 {object} stock.BatchResult
// @Failure 400 {string} string "Invalid file"
// @Failure 409 {object} DuplicateImportResponse
// @Router /imports/csv [post]
func ImportCSVHandler(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, _, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "missing file", http.StatusBadRequest)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		http.Error(w, "could not read file", http.StatusBadRequest)
		return
	}

	sum := sha256.Sum256(data)
	hash := hex.EncodeToString(sum[:])

	previous, err := catalogService.FindImport(r.Context(), hash)
	switch {
	case err == nil:
		respond(w, http.StatusConflict, DuplicateImportResponse{
			Error:   "file was already imported",
			BatchID: previous.BatchID,
		})
		return
	case !errors.Is(err, repo.ErrNotFound):
		writeError(w, err)
		return
	}

	entries, err := parseCSV(data)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if len(entries) == 0 {
		http.Error(w, "no rows to import", http.StatusBadRequest)
		return
	}

	result, importErr := stockService.ImportBatch(r.Context(), entries, uuid.NewString(), actor(r))
	if importErr != nil {
		logger.Warn("⚠️ import interrupted", zap.String("batch_id", result.BatchID), zap.Error(importErr))
	}

	// Record even a partial batch: its committed rows must not be applied again.
	if result.Imported > 0 {
		err := catalogService.RecordImport(context.WithoutCancel(r.Context()), models.ImportLog{
			BatchID:    result.BatchID,
			SourceHash: hash,
			Imported:   result.Imported,
			Failed:     result.Failed,
			Actor:      actor(r),
		})
		if err != nil {
			logger.Warn("⚠️ could not record import", zap.String("batch_id", result.BatchID), zap.Error(err))
		}
	}

	respond(w, http.StatusOK, result)
}
