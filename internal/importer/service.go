package importer

import (
	"context"
	"fmt"

	"golang-ofx-import-service/internal/categorizer"
	"golang-ofx-import-service/internal/matcher"
	"golang-ofx-import-service/internal/parsers"
	"golang-ofx-import-service/internal/storage"
	"golang-ofx-import-service/internal/validator"
	"golang-ofx-import-service/pkg/errors"
	"golang-ofx-import-service/pkg/logger"
)

// Service is the inbound surface of the pipeline, exposed to the CLI. Every
// entry point returns a structured result; no raw error or panic crosses it.
type Service struct {
	parser   *parsers.Parser
	preview  *PreviewBuilder
	executor *Executor
	log      logger.Logger
}

// NewService wires the full pipeline over one store. A nil matcher config or
// keyword set uses the defaults.
func NewService(store storage.Store, matcherConfig *matcher.Config, keywords *categorizer.KeywordSet) (*Service, error) {
	detector, err := matcher.NewDetector(store, matcherConfig)
	if err != nil {
		return nil, fmt.Errorf("wiring duplicate detector: %w", err)
	}

	return &Service{
		parser:   parsers.NewParser(),
		preview:  NewPreviewBuilder(store, detector, validator.New(), categorizer.New(keywords)),
		executor: NewExecutor(store),
		log:      logger.GetGlobalLogger().WithComponent("service"),
	}, nil
}

// Parse turns raw statement text into a structured result
func (s *Service) Parse(content string) (result *parsers.ParseResult) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Errorf("Parse panicked: %v", r)
			result = &parsers.ParseResult{
				Errors: []*errors.ImportError{
					errors.SystemError(errors.CodeUnexpectedError, "parse", fmt.Errorf("panic: %v", r)),
				},
			}
		}
	}()
	return s.parser.Parse(content)
}

// Preview runs the dry-run pipeline for a statement against a destination
// account.
func (s *Service) Preview(ctx context.Context, content, bankAccountID string) *ImportPreview {
	parseResult := s.Parse(content)
	return s.preview.BuildPreview(ctx, parseResult, bankAccountID)
}

// Import runs the full pipeline and persists the batch. Options may be nil,
// in which case the defaults for the account are used.
func (s *Service) Import(ctx context.Context, content, bankAccountID string, options *Options) *ImportResult {
	if options == nil {
		options = DefaultOptions(bankAccountID)
	}
	options.BankAccountID = bankAccountID
	if options.FileSize == 0 {
		options.FileSize = int64(len(content))
	}

	preview := s.Preview(ctx, content, bankAccountID)
	if !preview.Success {
		return &ImportResult{
			Outcome: RolledBack{Reason: firstOrUnknown(preview.Errors)},
			Errors:  preview.Errors,
		}
	}

	return s.executor.Execute(ctx, preview, options)
}

func firstOrUnknown(errs []*errors.ImportError) *errors.ImportError {
	if len(errs) > 0 {
		return errs[0]
	}
	return errors.SystemError(errors.CodeUnexpectedError, "import", nil)
}
