package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dgallion1/itemxtract/internal/ledger"
	"github.com/dgallion1/itemxtract/internal/outline"
	"github.com/dgallion1/itemxtract/internal/pathstore"
	"github.com/dgallion1/itemxtract/internal/rules"
	"github.com/dgallion1/itemxtract/internal/section"
	"github.com/dgallion1/itemxtract/internal/store"
	"github.com/dgallion1/itemxtract/internal/toc"
)

// Deps are the collaborators of a Worker. Mirror may be nil.
type Deps struct {
	Resolver Resolver
	Fetcher  Fetcher
	Store    Store
	Mirror   Mirror
	Rules    *rules.Rules
	Markdown bool
}

// Worker processes filing tasks. It holds no per-task state and may be
// shared between goroutines.
type Worker struct {
	deps      Deps
	log       *slog.Logger
	locator   *toc.Locator
	ranges    *toc.Resolver
	extractor *section.Extractor
	outliner  *outline.Builder
}

func NewWorker(deps Deps, log *slog.Logger) *Worker {
	r := deps.Rules
	if r == nil {
		r = rules.Default()
	}
	return &Worker{
		deps:      deps,
		log:       log,
		locator:   toc.NewLocator(r),
		ranges:    toc.NewResolver(r),
		extractor: section.NewExtractor(r),
		outliner:  outline.NewBuilder(r),
	}
}

// Process runs one task to completion and returns its ledger record.
// Failures are recorded in the ledger, never returned.
func (w *Worker) Process(ctx context.Context, session *ledger.Session, t Task) ledger.FilingRecord {
	log := w.log.With("identifier", t.Identifier, "year", t.Year, "filing_type", t.FilingType)
	f := session.Begin(t.Identifier, t.Year, t.FilingType)

	cik, err := w.deps.Resolver.ResolveCIK(ctx, t.Identifier)
	if err != nil {
		log.Error("resolve cik failed", "error", err)
		session.Download(f, false, false, err)
		return session.Complete(ctx, f)
	}
	session.SetCIK(f, cik)
	log = log.With("cik", cik)
	key := store.Key{CIK: cik, Year: t.Year, FilingType: t.FilingType}

	raw, err := w.document(ctx, log, session, f, key)
	if err != nil {
		return session.Complete(ctx, f)
	}

	idx, err := w.locator.Locate(raw, t.FilingType)
	session.TOC(f, err == nil, err)
	if err != nil {
		log.Warn("table of contents not found", "error", err)
		return session.Complete(ctx, f)
	}
	ranges := w.ranges.Resolve(raw, idx)

	items := t.Items
	if len(items) == 0 {
		items = idx.SortedIDs()
	}
	log.Info("extracting items", "items", items, "indexed", len(idx))

	for _, item := range items {
		if err := ctx.Err(); err != nil {
			session.Fail(f, err)
			break
		}
		err := w.item(ctx, log, t, key, raw, item, idx, ranges)
		if err == nil {
			session.Item(f, item, nil)
			continue
		}
		switch Classify(err) {
		case PartialDegradation:
			log.Warn("item degraded", "item", item, "error", err)
			session.Item(f, item, nil)
		case NotFound:
			log.Info("item not extracted", "item", item, "error", err)
			session.Item(f, item, err)
		default:
			log.Error("item failed, abandoning filing", "item", item, "error", err)
			session.Item(f, item, err)
			return session.Complete(ctx, f)
		}
	}
	return session.Complete(ctx, f)
}

// document returns the cached filing, downloading and caching it on a miss.
func (w *Worker) document(ctx context.Context, log *slog.Logger, session *ledger.Session, f *ledger.Filing, key store.Key) (string, error) {
	content, format, err := w.deps.Store.LoadDocument(key)
	if err == nil {
		log.Info("using cached filing", "format", format)
		session.Download(f, false, true, nil)
		return content, nil
	}
	if !errors.Is(err, store.ErrNotExist) {
		log.Warn("read cached filing failed", "error", err)
	}

	doc, err := w.deps.Fetcher.FetchFiling(ctx, key.CIK, key.FilingType, key.Year)
	if err != nil {
		log.Error("download failed", "error", err)
		session.Download(f, false, false, err)
		return "", err
	}
	session.Download(f, true, false, nil)
	path, err := w.deps.Store.SaveDocument(key, doc.Content, doc.Format)
	if err != nil {
		log.Warn("cache filing failed", "error", err)
	} else {
		log.Info("downloaded filing", "url", doc.URL, "path", path, "bytes", len(doc.Content))
	}
	return doc.Content, nil
}

// item extracts and persists one section plus its outline. A nil or
// PartialDegradation result means the section record was written.
func (w *Worker) item(ctx context.Context, log *slog.Logger, t Task, key store.Key, raw, item string, idx toc.Index, ranges toc.Ranges) error {
	sec, err := w.extractor.ExtractResolved(raw, item, idx, ranges)
	if err != nil {
		return err
	}
	path, err := w.deps.Store.SaveSection(key, sec)
	if err != nil {
		return err
	}
	log.Debug("saved item", "item", item, "path", path, "chars", len(sec.Text))

	var problems []error
	tree, err := w.outliner.Build(sec.Markup)
	if err != nil {
		problems = append(problems, degraded("outline", err))
	} else if _, err := w.deps.Store.SaveOutline(key, store.OutlineRecord{
		Ticker:     t.Identifier,
		Year:       t.Year,
		FilingType: t.FilingType,
		ItemNumber: item,
		Structure:  tree,
	}); err != nil {
		problems = append(problems, degraded("outline", err))
	}

	if w.deps.Markdown {
		if err := w.markdown(key, sec); err != nil {
			problems = append(problems, degraded("markdown", err))
		}
	}

	if w.deps.Mirror != nil {
		err := w.deps.Mirror.PutNode(ctx, pathstore.ItemKey(key.CIK, key.Year, key.FilingType, item), pathstore.NodeRequest{
			Value:  sec,
			Source: "itemxtract:" + t.Identifier,
		})
		if err != nil {
			problems = append(problems, degraded("mirror", err))
		}
	}

	if len(problems) > 0 {
		return degraded(fmt.Sprintf("item %s", item), errors.Join(problems...))
	}
	return nil
}

func (w *Worker) markdown(key store.Key, sec *section.Section) error {
	md, err := section.Markdown(sec.Markup)
	if err != nil {
		return err
	}
	_, err = w.deps.Store.SaveMarkdown(key, sec.ID, md)
	return err
}
