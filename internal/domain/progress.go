package domain

// ProgressFunc reports paging progress.
// Called once per page: (500, 1), (1000, 2), ...
type ProgressFunc func(loaded, pages int)
