package handler

type RunParams struct {
	Pipeline string `param:"pipeline"`
	RunID    string `param:"run_id"`
	Label    string `param:"label"`
	Limit    int64  `query:"limit"`
	Offset   int64  `query:"offset"`
}
