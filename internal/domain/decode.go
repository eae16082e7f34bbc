package domain

import (
	"encoding/json"
	"errors"
	"fmt"
)

// SchemaVersion 当前持久化文档版本；缺省 schemaVersion 的旧文档按 1 处理
const SchemaVersion = 1

func missing(document, field string) error {
	return &SchemaError{Document: document, Field: field, Reason: "required field missing"}
}

func invalid(document, field, reason string) error {
	return &SchemaError{Document: document, Field: field, Reason: reason}
}

func checkVersion(document string, v *int) error {
	if v == nil || *v == SchemaVersion {
		return nil
	}
	return invalid(document, "schemaVersion", fmt.Sprintf("unsupported version %d", *v))
}

func unmarshalDoc(document string, raw []byte, out any) error {
	if err := json.Unmarshal(raw, out); err != nil {
		return &SchemaError{Document: document, Reason: "malformed json: " + err.Error()}
	}
	return nil
}

// EncodeCollection 序列化集合：{"schemaVersion":1,"items":[...]}
func EncodeCollection[T any](items []T) ([]byte, error) {
	if items == nil {
		items = []T{}
	}
	return json.Marshal(struct {
		SchemaVersion int `json:"schemaVersion"`
		Items         []T `json:"items"`
	}{SchemaVersion, items})
}

// DecodeCollection 解析集合并逐项校验；任一项失败则整体失败
func DecodeCollection[T any](document string, raw []byte, decode func([]byte) (T, error)) ([]T, error) {
	var doc struct {
		SchemaVersion *int              `json:"schemaVersion"`
		Items         []json.RawMessage `json:"items"`
	}
	if err := unmarshalDoc(document, raw, &doc); err != nil {
		return nil, err
	}
	if err := checkVersion(document, doc.SchemaVersion); err != nil {
		return nil, err
	}
	if doc.Items == nil {
		return nil, missing(document, "items")
	}
	out := make([]T, 0, len(doc.Items))
	for i, item := range doc.Items {
		v, err := decode(item)
		if err != nil {
			return nil, fmt.Errorf("%s[%d]: %w", document, i, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// DecodeMedication 解析药品文档
func DecodeMedication(raw []byte) (Medication, error) {
	const document = "medication"
	var doc struct {
		SchemaVersion *int    `json:"schemaVersion"`
		ID            *string `json:"id"`
		Name          *string `json:"name"`
		Dosage        *string `json:"dosage"`
		Schedule      []struct {
			Time *string  `json:"time"`
			Days []string `json:"days"`
		} `json:"schedule"`
		ImageURI string `json:"imageUri"`
		Notes    string `json:"notes"`
		StartAt  *int64 `json:"startAt"`
		EndAt    *int64 `json:"endAt"`
		IsActive *bool  `json:"isActive"`
	}
	if err := unmarshalDoc(document, raw, &doc); err != nil {
		return Medication{}, err
	}
	if err := checkVersion(document, doc.SchemaVersion); err != nil {
		return Medication{}, err
	}
	switch {
	case doc.ID == nil || *doc.ID == "":
		return Medication{}, missing(document, "id")
	case doc.Name == nil:
		return Medication{}, missing(document, "name")
	case doc.Dosage == nil:
		return Medication{}, missing(document, "dosage")
	case doc.Schedule == nil:
		return Medication{}, missing(document, "schedule")
	}

	m := Medication{
		ID:       *doc.ID,
		Name:     *doc.Name,
		Dosage:   *doc.Dosage,
		Schedule: make([]ScheduleEntry, 0, len(doc.Schedule)),
		ImageURI: doc.ImageURI,
		Notes:    doc.Notes,
		StartAt:  doc.StartAt,
		EndAt:    doc.EndAt,
		IsActive: doc.IsActive,
	}
	for i, e := range doc.Schedule {
		field := fmt.Sprintf("schedule[%d]", i)
		if e.Time == nil {
			return Medication{}, missing(document, field+".time")
		}
		if _, _, err := ParseTimeOfDay(*e.Time); err != nil {
			return Medication{}, invalid(document, field+".time", err.Error())
		}
		if e.Days == nil {
			return Medication{}, missing(document, field+".days")
		}
		if len(e.Days) == 0 {
			return Medication{}, invalid(document, field+".days", "at least one day required")
		}
		for _, d := range e.Days {
			if _, _, ok := ParseDay(d); !ok {
				return Medication{}, invalid(document, field+".days", fmt.Sprintf("unknown day %q", d))
			}
		}
		m.Schedule = append(m.Schedule, ScheduleEntry{Time: *e.Time, Days: e.Days})
	}
	return m, nil
}

// DecodeMedicationLog 解析服药记录
// status / scheduledTime 缺失时报错，不默认为 "taken" / ""
func DecodeMedicationLog(raw []byte) (MedicationLog, error) {
	const document = "medicationLog"
	var doc struct {
		SchemaVersion *int       `json:"schemaVersion"`
		ID            *string    `json:"id"`
		MedicationID  *string    `json:"medicationId"`
		Status        *LogStatus `json:"status"`
		Timestamp     *int64     `json:"timestamp"`
		ScheduledTime *string    `json:"scheduledTime"`
	}
	if err := unmarshalDoc(document, raw, &doc); err != nil {
		return MedicationLog{}, err
	}
	if err := checkVersion(document, doc.SchemaVersion); err != nil {
		return MedicationLog{}, err
	}
	switch {
	case doc.ID == nil || *doc.ID == "":
		return MedicationLog{}, missing(document, "id")
	case doc.MedicationID == nil || *doc.MedicationID == "":
		return MedicationLog{}, missing(document, "medicationId")
	case doc.Status == nil:
		return MedicationLog{}, missing(document, "status")
	case !doc.Status.Valid():
		return MedicationLog{}, invalid(document, "status", fmt.Sprintf("unknown status %q", *doc.Status))
	case doc.Timestamp == nil:
		return MedicationLog{}, missing(document, "timestamp")
	case doc.ScheduledTime == nil:
		return MedicationLog{}, missing(document, "scheduledTime")
	}
	return MedicationLog{
		ID:            *doc.ID,
		MedicationID:  *doc.MedicationID,
		Status:        *doc.Status,
		Timestamp:     *doc.Timestamp,
		ScheduledTime: *doc.ScheduledTime,
	}, nil
}

// DecodeEmergencyContact 解析紧急联系人
func DecodeEmergencyContact(raw []byte) (EmergencyContact, error) {
	const document = "emergencyContact"
	var doc struct {
		SchemaVersion *int    `json:"schemaVersion"`
		ID            *string `json:"id"`
		Name          *string `json:"name"`
		Phone         *string `json:"phone"`
		Relationship  *string `json:"relationship"`
		IsPrimary     *bool   `json:"isPrimary"`
	}
	if err := unmarshalDoc(document, raw, &doc); err != nil {
		return EmergencyContact{}, err
	}
	if err := checkVersion(document, doc.SchemaVersion); err != nil {
		return EmergencyContact{}, err
	}
	switch {
	case doc.ID == nil || *doc.ID == "":
		return EmergencyContact{}, missing(document, "id")
	case doc.Name == nil:
		return EmergencyContact{}, missing(document, "name")
	case doc.Phone == nil:
		return EmergencyContact{}, missing(document, "phone")
	case doc.Relationship == nil:
		return EmergencyContact{}, missing(document, "relationship")
	case doc.IsPrimary == nil:
		return EmergencyContact{}, missing(document, "isPrimary")
	}
	return EmergencyContact{
		ID:           *doc.ID,
		Name:         *doc.Name,
		Phone:        *doc.Phone,
		Relationship: *doc.Relationship,
		IsPrimary:    *doc.IsPrimary,
	}, nil
}

// DecodeMemory 解析照片记录
func DecodeMemory(raw []byte) (Memory, error) {
	const document = "memory"
	var doc struct {
		SchemaVersion *int     `json:"schemaVersion"`
		ID            *string  `json:"id"`
		ImageURI      *string  `json:"imageUri"`
		Caption       *string  `json:"caption"`
		Timestamp     *int64   `json:"timestamp"`
		Tags          []string `json:"tags"`
	}
	if err := unmarshalDoc(document, raw, &doc); err != nil {
		return Memory{}, err
	}
	if err := checkVersion(document, doc.SchemaVersion); err != nil {
		return Memory{}, err
	}
	switch {
	case doc.ID == nil || *doc.ID == "":
		return Memory{}, missing(document, "id")
	case doc.ImageURI == nil:
		return Memory{}, missing(document, "imageUri")
	case doc.Caption == nil:
		return Memory{}, missing(document, "caption")
	case doc.Timestamp == nil:
		return Memory{}, missing(document, "timestamp")
	}
	return Memory{
		ID:        *doc.ID,
		ImageURI:  *doc.ImageURI,
		Caption:   *doc.Caption,
		Timestamp: *doc.Timestamp,
		Tags:      doc.Tags,
	}, nil
}

// DecodeChatMessage 解析对话消息，并校验 kind 与字段的一致性
func DecodeChatMessage(raw []byte) (ChatMessage, error) {
	const document = "chatMessage"
	var doc struct {
		SchemaVersion *int             `json:"schemaVersion"`
		ID            *string          `json:"id"`
		Kind          *MessageKind     `json:"kind"`
		Text          *string          `json:"text"`
		Sender        *Sender          `json:"sender"`
		Timestamp     *int64           `json:"timestamp"`
		Media         *MediaAttachment `json:"media"`
		Action        ChatAction       `json:"action"`
	}
	if err := unmarshalDoc(document, raw, &doc); err != nil {
		return ChatMessage{}, err
	}
	if err := checkVersion(document, doc.SchemaVersion); err != nil {
		return ChatMessage{}, err
	}
	switch {
	case doc.ID == nil || *doc.ID == "":
		return ChatMessage{}, missing(document, "id")
	case doc.Kind == nil:
		return ChatMessage{}, missing(document, "kind")
	case doc.Text == nil:
		return ChatMessage{}, missing(document, "text")
	case doc.Sender == nil:
		return ChatMessage{}, missing(document, "sender")
	case doc.Timestamp == nil:
		return ChatMessage{}, missing(document, "timestamp")
	}
	msg := ChatMessage{
		ID:        *doc.ID,
		Kind:      *doc.Kind,
		Text:      *doc.Text,
		Sender:    *doc.Sender,
		Timestamp: *doc.Timestamp,
		Media:     doc.Media,
		Action:    doc.Action,
	}
	if err := msg.Validate(); err != nil {
		return ChatMessage{}, AsSchemaError(document, err)
	}
	return msg, nil
}

// AsSchemaError 把读出数据上的校验失败转换为 SchemaError（写入时才是 ValidationError）
func AsSchemaError(document string, err error) error {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return invalid(document, ve.Field, ve.Reason)
	}
	return err
}

// DecodeElderStatus 解析状态快照
func DecodeElderStatus(raw []byte) (ElderStatus, error) {
	const document = "elderStatus"
	var doc struct {
		SchemaVersion *int   `json:"schemaVersion"`
		LastSeen      *int64 `json:"lastSeen"`
		LastLocation  *struct {
			Latitude  *float64 `json:"latitude"`
			Longitude *float64 `json:"longitude"`
			Address   string   `json:"address"`
		} `json:"lastLocation"`
		LastMedicationTaken *struct {
			Name      *string `json:"name"`
			Timestamp *int64  `json:"timestamp"`
		} `json:"lastMedicationTaken"`
		LastChatInteraction *struct {
			Message   *string `json:"message"`
			Timestamp *int64  `json:"timestamp"`
		} `json:"lastChatInteraction"`
	}
	if err := unmarshalDoc(document, raw, &doc); err != nil {
		return ElderStatus{}, err
	}
	if err := checkVersion(document, doc.SchemaVersion); err != nil {
		return ElderStatus{}, err
	}
	if doc.LastSeen == nil {
		return ElderStatus{}, missing(document, "lastSeen")
	}

	st := ElderStatus{LastSeen: *doc.LastSeen}
	if loc := doc.LastLocation; loc != nil {
		if loc.Latitude == nil {
			return ElderStatus{}, missing(document, "lastLocation.latitude")
		}
		if loc.Longitude == nil {
			return ElderStatus{}, missing(document, "lastLocation.longitude")
		}
		st.LastLocation = &Location{Latitude: *loc.Latitude, Longitude: *loc.Longitude, Address: loc.Address}
	}
	if med := doc.LastMedicationTaken; med != nil {
		if med.Name == nil {
			return ElderStatus{}, missing(document, "lastMedicationTaken.name")
		}
		if med.Timestamp == nil {
			return ElderStatus{}, missing(document, "lastMedicationTaken.timestamp")
		}
		st.LastMedicationTaken = &MedicationTaken{Name: *med.Name, Timestamp: *med.Timestamp}
	}
	if chat := doc.LastChatInteraction; chat != nil {
		if chat.Message == nil {
			return ElderStatus{}, missing(document, "lastChatInteraction.message")
		}
		if chat.Timestamp == nil {
			return ElderStatus{}, missing(document, "lastChatInteraction.timestamp")
		}
		st.LastChatInteraction = &ChatInteraction{Message: *chat.Message, Timestamp: *chat.Timestamp}
	}
	return st, nil
}

// EncodeElderStatus 序列化状态快照（带 schemaVersion）
func EncodeElderStatus(st ElderStatus) ([]byte, error) {
	return json.Marshal(struct {
		SchemaVersion int `json:"schemaVersion"`
		ElderStatus
	}{SchemaVersion, st})
}

// DecodePreferences 解析设置文档；缺省的开关取默认值，emergencyNumber 必填
func DecodePreferences(raw []byte) (Preferences, error) {
	const document = "preferences"
	var doc struct {
		SchemaVersion *int `json:"schemaVersion"`
		PreferencesPatch
	}
	if err := unmarshalDoc(document, raw, &doc); err != nil {
		return Preferences{}, err
	}
	if err := checkVersion(document, doc.SchemaVersion); err != nil {
		return Preferences{}, err
	}
	if doc.EmergencyNumber == nil {
		return Preferences{}, missing(document, "emergencyNumber")
	}
	p := DefaultPreferences().Apply(doc.PreferencesPatch)
	if err := p.Validate(); err != nil {
		return Preferences{}, AsSchemaError(document, err)
	}
	return p, nil
}

// EncodePreferences 序列化设置（带 schemaVersion）
func EncodePreferences(p Preferences) ([]byte, error) {
	return json.Marshal(struct {
		SchemaVersion int `json:"schemaVersion"`
		Preferences
	}{SchemaVersion, p})
}
