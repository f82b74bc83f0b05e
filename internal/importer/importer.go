package importer

import (
	"context"
	"errors"

	"github.com/MarcoPoloResearchLab/bookmarks/backend/internal/bookmarks"
	"go.uber.org/zap"
)

var errMissingCreator = errors.New("importer: bookmark creator is required")

// Creator persists a single bookmark.
type Creator interface {
	Create(ctx context.Context, request bookmarks.CreateRequest) (bookmarks.Bookmark, error)
}

// Rejection records an entry the store refused.
type Rejection struct {
	URL    string
	Reason string
}

// Report summarizes an import run.
type Report struct {
	Created  int
	Skipped  int
	Rejected []Rejection
}

// Importer creates bookmarks from parsed import entries.
type Importer struct {
	creator Creator
	logger  *zap.Logger
}

// New builds an Importer.
func New(creator Creator, logger *zap.Logger) (*Importer, error) {
	if creator == nil {
		return nil, errMissingCreator
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Importer{creator: creator, logger: logger}, nil
}

// Import creates each entry for userID in file order. Entries already saved
// are skipped and invalid ones are reported; any other failure stops the run.
func (i *Importer) Import(ctx context.Context, userID bookmarks.UserID, entries []Entry) (Report, error) {
	var report Report
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		_, err := i.creator.Create(ctx, bookmarks.CreateRequest{
			UserID: userID,
			URL:    entry.URL,
			Tags:   []string(entry.Tags),
		})
		switch {
		case err == nil:
			report.Created++
		case errors.Is(err, bookmarks.ErrDuplicate):
			report.Skipped++
			i.logger.Debug("import skipped existing bookmark", zap.String("url", entry.URL))
		case errors.Is(err, bookmarks.ErrValidation):
			report.Rejected = append(report.Rejected, Rejection{URL: entry.URL, Reason: rejectionReason(err)})
			i.logger.Warn("import rejected bookmark", zap.String("url", entry.URL), zap.Error(err))
		default:
			return report, err
		}
	}
	i.logger.Info("bookmark import finished",
		zap.String("user_id", userID.String()),
		zap.Int("created", report.Created),
		zap.Int("skipped", report.Skipped),
		zap.Int("rejected", len(report.Rejected)))
	return report, nil
}

func rejectionReason(err error) string {
	var serviceErr *bookmarks.ServiceError
	if errors.As(err, &serviceErr) {
		return serviceErr.Message()
	}
	return err.Error()
}
