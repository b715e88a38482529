package models

// ChangeBatch is an ordered set of changed records produced by one fetch.
// Next is the watermark candidate to commit once the batch is durably
// indexed; when no rows changed it equals the watermark the fetch started
// from. Full reports whether the fetch hit its row limit, meaning more
// changes are likely pending. A ChangeBatch is ephemeral — it exists only
// within one sync iteration.
type ChangeBatch struct {
	Records []Record
	Next    Watermark
	Full    bool
}

// Empty reports whether the batch carries no records and no watermark
// progress.
func (b *ChangeBatch) Empty() bool {
	return len(b.Records) == 0
}
