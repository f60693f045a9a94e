package worksheet

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg" // decoder registration
	_ "image/png"  // decoder registration

	"github.com/go-pdf/fpdf"
	"go.uber.org/zap"

	"github.com/paperfinder/paperfinder/internal/domain"
	"github.com/paperfinder/paperfinder/internal/domain/annotation"
	"github.com/paperfinder/paperfinder/internal/domain/label"
	domsession "github.com/paperfinder/paperfinder/internal/domain/session"
	domws "github.com/paperfinder/paperfinder/internal/domain/worksheet"
	"github.com/paperfinder/paperfinder/internal/logger"
	"github.com/paperfinder/paperfinder/internal/render"
)

// Document is a rendered worksheet.
type Document struct {
	Name  string
	Data  []byte
	Pages int
}

// Service builds A4 worksheets from selected questions.
type Service struct {
	fetcher  ImageFetcher
	sessions SessionReader
	assets   label.Assets
	logger   *zap.Logger
}

// New creates a worksheet service. sessions can be nil when only Export is used.
func New(fetcher ImageFetcher, sessions SessionReader, assets label.Assets, logger *zap.Logger) *Service {
	return &Service{fetcher: fetcher, sessions: sessions, assets: assets, logger: logger}
}

// FromSession exports the session's selection in selection order. With
// annotated set, the session's drawings are burned into each image.
func (s *Service) FromSession(
	ctx context.Context, sessionID string, mode domws.Mode, annotated bool,
) (Document, error) {
	if err := domsession.ValidateID(sessionID); err != nil {
		return Document{}, err
	}
	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return Document{}, fmt.Errorf("get session: %w", err)
	}
	var book *annotation.Book
	if annotated {
		b := sess.Book()
		book = &b
	}
	return s.Export(ctx, sess.Selection().IDs(), mode, book)
}

type asset struct {
	data      []byte
	imageType string
	size      domws.Size
}

// Export renders the given questions. Any fetch or decode failure aborts the
// whole export. book may be nil.
func (s *Service) Export(
	ctx context.Context, ids []string, mode domws.Mode, book *annotation.Book,
) (Document, error) {
	if len(ids) == 0 {
		return Document{}, fmt.Errorf("%w: no questions selected", domain.ErrInvalidInput)
	}
	for _, id := range ids {
		if err := label.Validate(id); err != nil {
			return Document{}, err
		}
	}

	items := domws.Expand(mode, ids)
	assets := make([]asset, 0, len(items))
	sizes := make([]domws.Size, 0, len(items))
	for _, it := range items {
		a, err := s.load(ctx, it, book)
		if err != nil {
			logger.FromContextOr(ctx, s.logger).Error("Worksheet export failed",
				zap.String("label_id", it.LabelID),
				zap.String("kind", string(it.Kind)),
				zap.Error(err),
			)
			return Document{}, err
		}
		assets = append(assets, a)
		sizes = append(sizes, a.size)
	}

	plan, err := domws.Layout(items, sizes)
	if err != nil {
		return Document{}, fmt.Errorf("layout worksheet: %w", err)
	}

	data, err := compose(plan, assets)
	if err != nil {
		return Document{}, err
	}
	return Document{Name: mode.FileName(), Data: data, Pages: plan.Pages}, nil
}

func (s *Service) load(ctx context.Context, it domws.Item, book *annotation.Book) (asset, error) {
	path, surface := s.assets.QuestionPath(it.LabelID), annotation.SurfaceQuestion
	if it.Kind == domws.KindAnswer {
		path, surface = s.assets.AnswerPath(it.LabelID), annotation.SurfaceMarkscheme
	}

	data, err := s.fetcher.Fetch(ctx, path)
	if err != nil {
		return asset{}, fmt.Errorf("fetch %s: %w", path, err)
	}

	imageType := "PNG"
	if label.IsJPEG(it.LabelID) {
		imageType = "JPG"
	}

	if book != nil {
		if d := book.Drawing(it.LabelID, surface); !d.IsEmpty() {
			return burn(data, d, path)
		}
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return asset{}, fmt.Errorf("%w: decode %s: %w", domain.ErrUpstream, path, err)
	}
	return asset{data: data, imageType: imageType, size: domws.Size{Width: cfg.Width, Height: cfg.Height}}, nil
}

// burn draws d over the image and re-encodes it as PNG.
func burn(data []byte, d annotation.DrawingData, path string) (asset, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return asset{}, fmt.Errorf("%w: decode %s: %w", domain.ErrUpstream, path, err)
	}
	out, err := render.Composite(img, d)
	if err != nil {
		return asset{}, fmt.Errorf("annotate %s: %w", path, err)
	}
	var buf bytes.Buffer
	if err := render.EncodePNG(&buf, out); err != nil {
		return asset{}, err
	}
	b := out.Bounds()
	return asset{data: buf.Bytes(), imageType: "PNG", size: domws.Size{Width: b.Dx(), Height: b.Dy()}}, nil
}

func compose(plan domws.Plan, assets []asset) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(domws.Margin, domws.Margin, domws.Margin)
	pdf.SetAutoPageBreak(false, domws.Margin)
	pdf.SetCreator("paperfinder", true)

	page := -1
	for i, p := range plan.Placements {
		for page < p.Page {
			pdf.AddPage()
			page++
		}
		name := fmt.Sprintf("item%d", i)
		opts := fpdf.ImageOptions{ImageType: assets[i].imageType}
		pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(assets[i].data))
		pdf.ImageOptions(name, p.X, p.Y, p.Width, p.Height, false, opts, 0, "")
	}
	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("compose pdf: %w", err)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("write pdf: %w", err)
	}
	return buf.Bytes(), nil
}
