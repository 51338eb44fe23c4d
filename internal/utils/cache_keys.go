package utils

import "strings"

const (
	CohortsCacheKey           = "cohorts:list:v1"
	DirectoryMembersCacheKey  = "directory:members:v1"
	sessionUserCacheKeyPrefix = "session:user:"
	notifyChannelPrefix       = "cohorthub:notify:"
)

func BuildSessionCacheKey(userID string) string {
	return sessionUserCacheKeyPrefix + userID
}

func BuildNotifyChannel(userID string) string {
	return notifyChannelPrefix + userID
}

// NotifyChannelPattern matches every per-user channel.
func NotifyChannelPattern() string {
	return notifyChannelPrefix + "*"
}

// UserIDFromNotifyChannel is the inverse of BuildNotifyChannel.
func UserIDFromNotifyChannel(channel string) (string, bool) {
	id, ok := strings.CutPrefix(channel, notifyChannelPrefix)
	return id, ok && id != ""
}
