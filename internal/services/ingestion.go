package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"mime"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"alfredoptarigan/comparecv/internal/models"
)

// IncomingFile is a user-selected file before validation.
type IncomingFile struct {
	FileName  string
	MIMEType  string
	SizeBytes int64
	Open      func() (io.ReadCloser, error)
}

func IncomingFromMultipart(fh *multipart.FileHeader) IncomingFile {
	return IncomingFile{
		FileName:  fh.Filename,
		MIMEType:  fh.Header.Get("Content-Type"),
		SizeBytes: fh.Size,
		Open: func() (io.ReadCloser, error) {
			return fh.Open()
		},
	}
}

func IncomingFromPath(path string) (IncomingFile, error) {
	info, err := os.Stat(path)
	if err != nil {
		return IncomingFile{}, fmt.Errorf("failed to stat file: %w", err)
	}

	return IncomingFile{
		FileName:  filepath.Base(path),
		MIMEType:  mime.TypeByExtension(strings.ToLower(filepath.Ext(path))),
		SizeBytes: info.Size(),
		Open: func() (io.ReadCloser, error) {
			return os.Open(path)
		},
	}, nil
}

type IngestResult struct {
	Accepted []models.CandidateDocument
	Notices  []IngestionNotice
}

type IngestionService interface {
	Ingest(ctx context.Context, currentCount int, files []IncomingFile) (*IngestResult, error)
	MaxFiles() int
}

type ingestionService struct {
	maxFiles      int
	maxFileSize   int64
	allowedTypes  map[string]bool
	readerWorkers int
}

func NewIngestionService(maxFiles int, maxFileSize int64, allowTextFallback bool) IngestionService {
	allowed := map[string]bool{models.MIMETypePDF: true}
	if allowTextFallback {
		allowed[models.MIMETypePlainText] = true
	}

	return &ingestionService{
		maxFiles:      maxFiles,
		maxFileSize:   maxFileSize,
		allowedTypes:  allowed,
		readerWorkers: 4,
	}
}

// MaxFiles implements IngestionService.
func (s *ingestionService) MaxFiles() int {
	return s.maxFiles
}

// Ingest implements IngestionService.
func (s *ingestionService) Ingest(ctx context.Context, currentCount int, files []IncomingFile) (*IngestResult, error) {
	if currentCount+len(files) > s.maxFiles {
		return nil, &IngestionError{
			Limit:   s.maxFiles,
			Message: fmt.Sprintf("Você só pode adicionar no máximo %d currículos por vez.", s.maxFiles),
		}
	}

	notices := make([]*IngestionNotice, len(files))
	docs := make([]*models.CandidateDocument, len(files))
	mimeTypes := make([]string, len(files))

	for i, f := range files {
		mimeTypes[i] = normalizeMIMEType(f.MIMEType)
		if mimeTypes[i] == "" || mimeTypes[i] == "application/octet-stream" {
			mimeTypes[i] = sniffMIMEType(f)
		}

		if !s.allowedTypes[mimeTypes[i]] {
			notices[i] = &IngestionNotice{FileName: f.FileName, Message: fmt.Sprintf("O arquivo %q não é um PDF.", f.FileName)}
			continue
		}
		if f.SizeBytes > s.maxFileSize {
			notices[i] = &IngestionNotice{FileName: f.FileName, Message: s.tooLargeMessage(f.FileName)}
		}
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(s.readerWorkers)

	for i, f := range files {
		if notices[i] != nil {
			continue
		}
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			data, err := s.readFile(f)
			if err != nil {
				log.Printf("⚠️  Failed to read %s: %v", f.FileName, err)
				notices[i] = &IngestionNotice{FileName: f.FileName, Message: s.readFailureMessage(f.FileName, err)}
				return nil
			}
			doc := models.NewCandidateDocument(f.FileName, mimeTypes[i], data)
			docs[i] = &doc
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to read files: %w", err)
	}

	result := &IngestResult{}
	for i := range files {
		if notices[i] != nil {
			result.Notices = append(result.Notices, *notices[i])
			continue
		}
		if docs[i] != nil {
			result.Accepted = append(result.Accepted, *docs[i])
		}
	}

	return result, nil
}

var errFileTooLarge = errors.New("file exceeds size limit")

func (s *ingestionService) readFile(f IncomingFile) ([]byte, error) {
	if f.Open == nil {
		return nil, fmt.Errorf("file has no content")
	}

	src, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer src.Close()

	// Headers can lie about the size; never read past the limit.
	data, err := io.ReadAll(io.LimitReader(src, s.maxFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read uploaded file: %w", err)
	}
	if int64(len(data)) > s.maxFileSize {
		return nil, errFileTooLarge
	}

	return data, nil
}

func (s *ingestionService) tooLargeMessage(fileName string) string {
	return fmt.Sprintf("O arquivo %q excede o limite de %dMB.", fileName, s.maxFileSize/(1024*1024))
}

func (s *ingestionService) readFailureMessage(fileName string, err error) string {
	if errors.Is(err, errFileTooLarge) {
		return s.tooLargeMessage(fileName)
	}
	return fmt.Sprintf("Não foi possível ler o arquivo %q.", fileName)
}

func normalizeMIMEType(value string) string {
	if value == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(value)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(value))
	}
	return mediaType
}

func sniffMIMEType(f IncomingFile) string {
	if f.Open == nil {
		return ""
	}
	src, err := f.Open()
	if err != nil {
		return ""
	}
	defer src.Close()

	head := make([]byte, 512)
	n, _ := io.ReadFull(src, head)
	return normalizeMIMEType(http.DetectContentType(head[:n]))
}
