// Package handlers implements the HTTP handlers of the audit export server.
//
// GET /export streams a CSV report:
//
//	GET /export?fromDate=2019-06-01&toDate=2019-06-30&caseType=MIN&exportType=CASE_DATA
//
// Errors detected before output starts are answered with a JSON body:
//
//	400 invalid_request        missing or malformed parameter, empty range,
//	                           unknown case type or report type
//	422 unknown_adapter_type   the view schema names an adapter that cannot
//	                           be resolved
//	502 upstream_failure       the info or casework service failed
//	504 timeout                preparation ran out of time
//	500 internal_error         anything else
package handlers
