package apperrors

import "errors"

// ErrUnauthenticated indicates the request carried no usable identity.
var ErrUnauthenticated = errors.New("unauthenticated")

// ErrNoMembership indicates the identity has no practice yet.
var ErrNoMembership = errors.New("no practice membership")

// ErrAccessDenied indicates the identity is not a member of the target practice.
var ErrAccessDenied = errors.New("access denied")

// ErrNotFound indicates the referenced document, analysis or practice is absent.
var ErrNotFound = errors.New("not found")

// ErrAnalysisInFlight indicates the document already has a queued or
// processing analysis; a second run is rejected rather than raced.
var ErrAnalysisInFlight = errors.New("analysis already in flight")

// ErrUnsupportedContentType indicates the extraction adapter cannot classify the media.
var ErrUnsupportedContentType = errors.New("unsupported content type")

// ErrURLResolution indicates the stored blob reference could not be resolved
// to a download URL (typically the object was removed out of band).
var ErrURLResolution = errors.New("blob url resolution failed")

// ErrExtractionFailure wraps any model, network or schema error raised while
// extracting a report. It never propagates to the caller of a run; it lands
// in the analysis record's error message.
var ErrExtractionFailure = errors.New("extraction failed")
