package exportService

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/KotFed0t/fund_tracker_bot/config"
	"github.com/KotFed0t/fund_tracker_bot/internal/model"
	"github.com/KotFed0t/fund_tracker_bot/internal/service"
	"github.com/KotFed0t/fund_tracker_bot/utils"
)

type ReportGenerator interface {
	Generate(ctx context.Context, portfolio model.Portfolio) (fileBytes []byte, fileExtension string, err error)
}

type CloudStorage interface {
	UploadFile(ctx context.Context, reader io.Reader, filename string) (downloadLink string, err error)
}

type ExportService struct {
	cfg       *config.Config
	generator ReportGenerator
	storage   CloudStorage
	now       func() time.Time
}

// New builds the service. storage may be nil, then reports are returned as content only.
func New(cfg *config.Config, generator ReportGenerator, storage CloudStorage) *ExportService {
	return &ExportService{cfg: cfg, generator: generator, storage: storage, now: time.Now}
}

// Export renders the snapshot. With cloud storage the report carries a link,
// otherwise its content, which must fit the telegram file limit.
func (s *ExportService) Export(ctx context.Context, username string, portfolio model.Portfolio) (model.Report, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "ExportService.Export"

	content, ext, err := s.generator.Generate(ctx, portfolio)
	if err != nil {
		slog.Error("got error from generator.Generate", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.Report{}, err
	}

	report := model.Report{
		FileName: fmt.Sprintf("holdings_%s_%s%s", username, s.now().Format("20060102_150405"), ext),
	}

	if s.storage != nil {
		link, err := s.storage.UploadFile(ctx, bytes.NewReader(content), report.FileName)
		if err != nil {
			slog.Error("got error from storage.UploadFile", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
			return model.Report{}, err
		}
		report.Link = link
		return report, nil
	}

	if len(content) > s.cfg.Telegram.FileLimitInBytes {
		slog.Warn("report exceeds telegram file limit", slog.String("rqID", rqID), slog.String("op", op), slog.Int("size", len(content)))
		return model.Report{}, service.ErrReportTooLarge
	}

	report.Content = content
	return report, nil
}
