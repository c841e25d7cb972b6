package scanner

import "time"

const (
	checkpointInterval uint64 = 100
	throughputLogEvery uint64 = 100_000

	defaultPollInterval = 10 * time.Second
)
