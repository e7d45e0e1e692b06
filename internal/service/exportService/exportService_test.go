package exportService

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/KotFed0t/fund_tracker_bot/config"
	"github.com/KotFed0t/fund_tracker_bot/internal/model"
	"github.com/KotFed0t/fund_tracker_bot/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type generatorFunc func(ctx context.Context, portfolio model.Portfolio) ([]byte, string, error)

func (f generatorFunc) Generate(ctx context.Context, portfolio model.Portfolio) ([]byte, string, error) {
	return f(ctx, portfolio)
}

type fakeStorage struct {
	name    string
	content []byte
	err     error
}

func (s *fakeStorage) UploadFile(ctx context.Context, reader io.Reader, filename string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.name = filename
	s.content, _ = io.ReadAll(reader)
	return "https://drive.google.com/file/d/x/view", nil
}

func fixedGenerator(content string) generatorFunc {
	return func(ctx context.Context, portfolio model.Portfolio) ([]byte, string, error) {
		return []byte(content), ".xlsx", nil
	}
}

func newCfg(limit int) *config.Config {
	cfg := &config.Config{}
	cfg.Telegram.FileLimitInBytes = limit
	return cfg
}

func TestExportAsDocument(t *testing.T) {
	s := New(newCfg(100), fixedGenerator("report"), nil)
	s.now = func() time.Time { return time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC) }

	report, err := s.Export(t.Context(), "alice", model.Portfolio{Loaded: true})
	require.NoError(t, err)
	assert.Equal(t, "holdings_alice_20250310_093000.xlsx", report.FileName)
	assert.Equal(t, []byte("report"), report.Content)
	assert.Empty(t, report.Link)
}

func TestExportTooLarge(t *testing.T) {
	s := New(newCfg(3), fixedGenerator("report"), nil)

	_, err := s.Export(t.Context(), "alice", model.Portfolio{Loaded: true})
	assert.ErrorIs(t, err, service.ErrReportTooLarge)
}

func TestExportToCloud(t *testing.T) {
	storage := &fakeStorage{}
	s := New(newCfg(3), fixedGenerator("report"), storage)

	report, err := s.Export(t.Context(), "alice", model.Portfolio{Loaded: true})
	require.NoError(t, err)
	assert.Equal(t, "https://drive.google.com/file/d/x/view", report.Link)
	assert.Nil(t, report.Content)
	assert.Equal(t, report.FileName, storage.name)
	assert.Equal(t, []byte("report"), storage.content)
}

func TestExportErrors(t *testing.T) {
	boom := errors.New("boom")

	s := New(newCfg(100), generatorFunc(func(ctx context.Context, portfolio model.Portfolio) ([]byte, string, error) {
		return nil, "", boom
	}), nil)
	_, err := s.Export(t.Context(), "alice", model.Portfolio{})
	assert.ErrorIs(t, err, boom)

	s = New(newCfg(100), fixedGenerator("report"), &fakeStorage{err: boom})
	_, err = s.Export(t.Context(), "alice", model.Portfolio{Loaded: true})
	assert.ErrorIs(t, err, boom)
}
