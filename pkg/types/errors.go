package types

import "errors"

// Error kinds exposed to API consumers
const (
	KindInvalidURL        = "InvalidUrl"
	KindRepoNotFound      = "RepoNotFound"
	KindBranchNotFound    = "BranchNotFound"
	KindFileNotFound      = "FileNotFound"
	KindRateLimitExceeded = "RateLimitExceeded"
	KindTooLarge          = "TooLarge"
	KindDecodeFailure     = "DecodeFailure"
	KindUnknown           = "Unknown"
)

// Sentinel errors. Every failure surfaced by the remote client or the navigation
// controller wraps exactly one of these.
var (
	ErrInvalidURL        = errors.New("Invalid GitHub URL")
	ErrRepoNotFound      = errors.New("Couldn't find repository")
	ErrBranchNotFound    = errors.New("Couldn't find branch")
	ErrFileNotFound      = errors.New("File not found")
	ErrRateLimitExceeded = errors.New("GitHub API rate limit exceeded")
	ErrTooLarge          = errors.New("File is too large to display")
	ErrDecodeFailure     = errors.New("File could not be decoded")
	ErrUnknown           = errors.New("An unknown error occurred")
)

var kinds = []struct {
	err  error
	kind string
}{
	{ErrInvalidURL, KindInvalidURL},
	{ErrRepoNotFound, KindRepoNotFound},
	{ErrBranchNotFound, KindBranchNotFound},
	{ErrFileNotFound, KindFileNotFound},
	{ErrRateLimitExceeded, KindRateLimitExceeded},
	{ErrTooLarge, KindTooLarge},
	{ErrDecodeFailure, KindDecodeFailure},
	{ErrUnknown, KindUnknown},
}

// KindOf returns the stable kind string of err. A nil error has no kind;
// anything outside the taxonomy is Unknown.
func KindOf(err error) string {
	if err == nil {
		return ""
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindUnknown
}

// ErrorOf is the inverse of KindOf.
func ErrorOf(kind string) error {
	for _, k := range kinds {
		if k.kind == kind {
			return k.err
		}
	}
	return ErrUnknown
}
