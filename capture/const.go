package capture

const (
	// Length of the shortest HTTP method that we recognize.
	// 3 == len(`GET`)
	minSupportedMethodLength = 3

	// Length of the longest HTTP method that we recognize.
	// 7 == len(`CONNECT`)
	maxSupportedMethodLength = 7

	// Maximum request-target length the probe accepts before rejecting a
	// stream as non-HTTP. 2000 bytes is the de facto limit for URLs, so we
	// double it.
	maxProbeTargetLength = 4000

	// Maximum reason-phrase length the probe accepts.
	maxProbeReasonLength = 512

	// Minimum status-line prefix needed before a stream can be accepted as
	// an HTTP response.
	// 12 == len(`HTTP/1.1 200`)
	minStatusLineLength = 12
)

var (
	// Sorted with more common ones near the front. Remember to update
	// maxSupportedMethodLength if necessary.
	supportedMethods = []string{
		"GET",
		"POST",
		"DELETE",
		"HEAD",
		"PUT",
		"PATCH",
		"CONNECT",
		"OPTIONS",
		"TRACE",
	}
)
