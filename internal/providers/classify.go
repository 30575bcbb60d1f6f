package providers

import (
	"context"
	"errors"
	"net"

	"github.com/aws/smithy-go"

	"github.com/systmms/awscfg/pkg/credentials"
)

// classifyRemote folds an error from a remote identity call into the chain
// taxonomy. The rule: if the service answered (a smithy API error), the
// request itself was rejected and the error is hard; if the endpoint could not
// be reached or the step's bounded timeout elapsed, the source is unavailable
// and the error is a soft miss.
func classifyRemote(source string, err error) error {
	if err == nil {
		return nil
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		// The service rejected the request; retrying another provider will
		// not help and hiding the rejection would mask misconfiguration.
		return err
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &credentials.UnreachableError{Source: source, Timeout: true, Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &credentials.UnreachableError{Source: source, Timeout: true, Err: err}
	}
	if errors.Is(err, context.Canceled) {
		return err
	}

	return &credentials.UnreachableError{Source: source, Err: err}
}
