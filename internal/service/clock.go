package service

import (
	"fmt"

	"github.com/target/noticeboard/internal/data"
	domainauth "github.com/target/noticeboard/internal/domain/auth"
)

func timeProviderOrDefault(tp data.TimeProvider) data.TimeProvider {
	if tp == nil {
		return data.RealTimeProvider{}
	}
	return tp
}

// storeErr marks err as a fatal credential/session store failure.
func storeErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, domainauth.ErrStoreUnavailable, err)
}
