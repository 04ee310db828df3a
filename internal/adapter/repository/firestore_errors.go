package repository

import (
	"fmt"
	"strings"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"propertigo/pkg/errors"
)

// mapProviderError classifies a Firestore failure into the service error
// taxonomy. op and path give operators enough to action an INDEX_REQUIRED
// without digging through traces.
func mapProviderError(op, path string, err error) *errors.AppError {
	switch status.Code(err) {
	case codes.NotFound:
		return errors.NotFound(path, err)
	case codes.PermissionDenied:
		return errors.Forbidden(fmt.Sprintf("not permitted: %s on %s", op, path), err)
	case codes.FailedPrecondition:
		if strings.Contains(err.Error(), "index") {
			return errors.IndexRequired(fmt.Sprintf("query requires a composite index: %s on %s", op, path), err)
		}
		return errors.Internal(fmt.Sprintf("failed precondition: %s on %s", op, path), err)
	case codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted, codes.Aborted:
		return errors.Transient(fmt.Sprintf("backend unavailable: %s on %s", op, path), err)
	default:
		return errors.Internal(fmt.Sprintf("%s on %s failed", op, path), err)
	}
}
