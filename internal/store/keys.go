package store

import "fmt"

// KeyPrefix 所有 ElderAid key 的前缀
const KeyPrefix = "elderaid:elder:"

// 集合名
const (
	CollectionMedications       = "medications"
	CollectionMedicationLogs    = "medication-logs"
	CollectionChatMessages      = "chat-messages"
	CollectionMemories          = "memories"
	CollectionEmergencyContacts = "emergency-contacts"
	CollectionStatus            = "status"
	CollectionDashboard         = "dashboard"
	CollectionPreferences       = "preferences"
)

// ElderKey elderaid:elder:{elderID}:{collection}
func ElderKey(elderID, collection string) string {
	return fmt.Sprintf("%s%s:%s", KeyPrefix, elderID, collection)
}

// ElderPattern 某个集合在所有老人下的 SCAN 模式
func ElderPattern(collection string) string {
	return fmt.Sprintf("%s*:%s", KeyPrefix, collection)
}

// ElderIDFromKey 从 key 中解析 elderID；格式不符返回 false
func ElderIDFromKey(key, collection string) (string, bool) {
	suffix := ":" + collection
	if len(key) <= len(KeyPrefix)+len(suffix) || key[:len(KeyPrefix)] != KeyPrefix || key[len(key)-len(suffix):] != suffix {
		return "", false
	}
	return key[len(KeyPrefix) : len(key)-len(suffix)], true
}
