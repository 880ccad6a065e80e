package constant

import "time"

const (
	REQUEST_SUCCESSFUL   = "Request successful"
	REQUEST_UNSUCCESSFUL = "Request unsuccessful"

	QUERY_TIMEOUT_DURATION = 5 * time.Second

	DefaultPageSize uint = 20
)
