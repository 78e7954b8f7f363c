package domain

const (
	OperationsPerPage = 15
	MarketsPerPage    = 10

	OperationTypeBuy  = "buy"
	OperationTypeSell = "sell"
)
