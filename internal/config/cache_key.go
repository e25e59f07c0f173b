package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// CourseChangesChannel returns the Redis PubSub channel carrying course change events
func (r *CacheKeyStruct) CourseChangesChannel(channel string) string {
	return fmt.Sprintf("catalog:%s", channel)
}

var CacheKey = NewCacheKeyStruct()
