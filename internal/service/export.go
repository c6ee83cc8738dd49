package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pkordes/travel-karte/internal/domain"
	"github.com/pkordes/travel-karte/internal/excel"
	"github.com/pkordes/travel-karte/internal/repo"
)

// Renderer turns a karte into workbook bytes.
type Renderer interface {
	Generate(k domain.Karte) ([]byte, error)
}

// ExportService renders stored kartes as spreadsheet downloads.
type ExportService struct {
	kartes   repo.KarteRepo
	renderer Renderer
	now      func() time.Time
}

// NewExportService constructs an ExportService. now stamps the file name.
func NewExportService(kartes repo.KarteRepo, renderer Renderer, now func() time.Time) *ExportService {
	return &ExportService{kartes: kartes, renderer: renderer, now: now}
}

// Export renders the karte with the given id.
func (s *ExportService) Export(ctx context.Context, id uuid.UUID) (domain.ExportFile, error) {
	k, err := s.kartes.GetByID(ctx, id)
	if err != nil {
		return domain.ExportFile{}, fmt.Errorf("service.ExportService.Export: %w", err)
	}
	k.Derive()

	content, err := s.renderer.Generate(k)
	if err != nil {
		return domain.ExportFile{}, fmt.Errorf("service.ExportService.Export: render: %w", err)
	}
	return domain.ExportFile{
		Name:        excel.FileName(k, s.now()),
		ContentType: excel.ContentType,
		Content:     content,
	}, nil
}
