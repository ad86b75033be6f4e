package exception

import "github.com/yanun0323/errors"

var (
	ErrClean               = errors.New("clean: invalid batch")
	ErrCollect             = errors.New("collect: failed")
	ErrAllCollectorsFailed = errors.New("collect: all collectors failed")
	ErrNoCollector         = errors.New("collect: no collector configured")
	ErrStorage             = errors.New("storage: save failed")
	ErrQueueClosed         = errors.New("queue: closed")
)
