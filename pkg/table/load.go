package table

import (
	"log/slog"

	"relstore/pkg/logging"
	"relstore/pkg/primitives"
	"relstore/pkg/storage/page"
)

// loadExisting probes page 1 and, when it reads back as a populated
// page, adopts it as the chain head and walks the chain to recompute
// the page and tuple id counters past every id already on disk.
func (t *Table) loadExisting() error {
	ref, err := t.pool.GetPage(1)
	if err != nil {
		return err
	}
	header := page.ReadHeader(ref.Data())
	ref.Release()

	if header.PageID != 1 || header.TupleCount == 0 {
		return nil
	}

	t.headPageID = 1

	maxPageID := primitives.PageID(1)
	maxTupleID := primitives.TupleID(0)

	cur := t.headPageID
	for cur != primitives.InvalidPageID {
		tuples, next, err := t.readPage(cur)
		if err != nil {
			return err
		}

		if cur > maxPageID {
			maxPageID = cur
		}
		for _, tp := range tuples {
			if tp.ID > maxTupleID {
				maxTupleID = tp.ID
			}
		}

		// readPage released the current page before we advance, so the
		// pin never outlives the walk step.
		cur = next
	}

	t.nextPageID = maxPageID + 1
	t.nextTupleID = maxTupleID + 1

	logging.Get().Info("loaded existing table",
		slog.String("table", t.name),
		slog.Uint64("next_page", uint64(t.nextPageID)),
		slog.Uint64("next_tuple", uint64(t.nextTupleID)))
	return nil
}
