package usecases

import (
	"context"
	"fmt"
)

type PingBackend struct {
	Backend Backend
}

func (u PingBackend) Execute(ctx context.Context) error {
	if u.Backend == nil {
		return fmt.Errorf("backend is nil")
	}
	return u.Backend.Ping(ctx)
}
