package publish

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"strings"

	"draftbot/internal/config"
	"draftbot/internal/drafts"
	"draftbot/internal/fileutil"
	"draftbot/internal/logging"
	"draftbot/internal/services"
)

// Publisher writes social snippets and optionally posts approved drafts to
// Medium.
type Publisher struct {
	medium        *MediumClient
	tags          []string
	publishStatus string
	logger        *slog.Logger
}

// New constructs a Publisher. medium may be nil.
func New(cfg *config.Config, medium *MediumClient, logger *slog.Logger) *Publisher {
	return &Publisher{
		medium:        medium,
		tags:          append([]string(nil), cfg.Medium.Tags...),
		publishStatus: cfg.Medium.PublishStatus,
		logger:        logging.NewComponentLogger(logger, "publish"),
	}
}

// SocialPath returns where the snippets for draftPath are written.
func SocialPath(draftPath string) string {
	ext := filepath.Ext(draftPath)
	return strings.TrimSuffix(draftPath, ext) + ".social.txt"
}

// PublishApproved writes snippets for the draft at path and creates the
// Medium post when configured. Both steps are attempted.
func (p *Publisher) PublishApproved(ctx context.Context, path string) error {
	draft, err := drafts.Load(path)
	if err != nil {
		return err
	}
	ctx = services.WithDraftPath(ctx, path)
	logger := logging.WithContext(ctx, p.logger)

	var errs []error
	social := SocialPath(path)
	if err := fileutil.WriteAtomic(social, []byte(SocialText(draft.Text))); err != nil {
		errs = append(errs, &services.FileOperationError{Op: "write", Path: social, Err: err})
	} else {
		logger.Info("social snippets written",
			logging.Event("social_snippets_written"),
			logging.String("social_path", social),
		)
	}

	if p.medium != nil {
		url, err := p.postToMedium(ctx, draft)
		if err != nil {
			errs = append(errs, &services.PublishError{Op: "medium", Err: err})
		} else {
			logger.Info("draft posted to medium",
				logging.Event("medium_posted"),
				logging.String("url", url),
				logging.String("publish_status", p.publishStatus),
			)
		}
	}
	return errors.Join(errs...)
}

func (p *Publisher) postToMedium(ctx context.Context, draft drafts.Draft) (string, error) {
	user, err := p.medium.Me(ctx)
	if err != nil {
		return "", err
	}
	title, body := SplitTitle(draft.Text)
	if title == "" {
		title = draft.Title()
	}
	post, err := p.medium.CreatePost(ctx, user.ID, MediumPost{
		Title:         title,
		ContentFormat: "markdown",
		Content:       body,
		Tags:          p.tags,
		PublishStatus: p.publishStatus,
	})
	if err != nil {
		return "", err
	}
	return post.URL, nil
}
