package service

import (
	"errors"

	"github.com/mtlprog/taskhub/internal/cache"
	"github.com/mtlprog/taskhub/internal/domain"
)

func isMiss(err error) bool {
	return errors.Is(err, cache.ErrMiss)
}

func isNotFound(err error) bool {
	return errors.Is(err, domain.ErrNotFound)
}
