package engine

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/conectabot/inbox/models"
	"github.com/conectabot/inbox/pkg"
)

// ParseSnapshot decodes the body of GET /api/whatsapp/conversaciones-activas.
//
// The body is a JSON object keyed by conversation id. Keys are read from the
// token stream so the returned slice keeps the order of the body, which is the
// tie-break order for equal update tokens.
//
// A body that is not a JSON object fails with pkg.ErrMalformedBody. A bad
// entry is skipped and reported in skipped as a *MalformedEntryError; the
// other entries are still returned.
func ParseSnapshot(body []byte) (entries []models.RawConversation, skipped []error, err error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	if err := expectDelim(dec, '{'); err != nil {
		return nil, nil, err
	}

	seen := make(map[string]bool)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %v", pkg.ErrMalformedBody, err)
		}
		id, _ := tok.(string)

		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, nil, fmt.Errorf("%w: %v", pkg.ErrMalformedBody, err)
		}

		if strings.TrimSpace(id) == "" {
			skipped = append(skipped, &MalformedEntryError{ID: id, Reason: "empty conversation id"})
			continue
		}
		if seen[id] {
			skipped = append(skipped, &MalformedEntryError{ID: id, Reason: "duplicate conversation id"})
			continue
		}
		seen[id] = true

		raw, err := parseConversation(id, value)
		if err != nil {
			skipped = append(skipped, err)
			continue
		}
		entries = append(entries, raw)
	}

	if err := expectDelim(dec, '}'); err != nil {
		return nil, nil, err
	}

	return entries, skipped, nil
}

func parseConversation(id string, value json.RawMessage) (models.RawConversation, error) {
	fields, err := objectFields(value)
	if err != nil {
		return models.RawConversation{}, &MalformedEntryError{ID: id, Reason: err.Error()}
	}

	updatedAt, present, err := stringField(fields, "updated_at")
	if err != nil {
		return models.RawConversation{}, &MalformedEntryError{ID: id, Reason: err.Error()}
	}
	if !present {
		return models.RawConversation{}, &MalformedEntryError{ID: id, Reason: "missing updated_at"}
	}

	name, _, err := stringField(fields, "nombre")
	if err != nil {
		return models.RawConversation{}, &MalformedEntryError{ID: id, Reason: err.Error()}
	}
	if name == "" {
		name = id
	}

	text, _, err := stringField(fields, "ultimoTexto")
	if err != nil {
		return models.RawConversation{}, &MalformedEntryError{ID: id, Reason: err.Error()}
	}

	status, _, err := stringField(fields, "status")
	if err != nil {
		return models.RawConversation{}, &MalformedEntryError{ID: id, Reason: err.Error()}
	}

	return models.RawConversation{
		ID:              id,
		DisplayName:     name,
		LastMessageText: text,
		UpdatedAt:       updatedAt,
		Status:          models.ParseConversationStatus(status),
	}, nil
}

// ParseMessages decodes the body of GET .../mensajes: {"mensajes": [...]}.
//
// Entries that are not objects are skipped and reported in skipped.
// A null list is an empty conversation; a missing one is a malformed body.
func ParseMessages(body []byte) (messages []models.MessageUI, skipped []error, err error) {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", pkg.ErrMalformedBody, err)
	}
	rawList, ok := envelope["mensajes"]
	if !ok {
		return nil, nil, fmt.Errorf("%w: missing mensajes", pkg.ErrMalformedBody)
	}

	var list []json.RawMessage
	if err := json.Unmarshal(rawList, &list); err != nil {
		return nil, nil, fmt.Errorf("%w: mensajes is not a list: %v", pkg.ErrMalformedBody, err)
	}

	messages = make([]models.MessageUI, 0, len(list))
	for i, value := range list {
		msg, err := parseMessage(value)
		if err != nil {
			skipped = append(skipped, &MalformedEntryError{ID: fmt.Sprintf("#%d", i), Reason: err.Error()})
			continue
		}
		messages = append(messages, msg)
	}
	return messages, skipped, nil
}

// messageTimeKeys are tried in order; the first non-empty one wins.
var messageTimeKeys = []string{"creado_en", "created_at", "timestamp"}

func parseMessage(value json.RawMessage) (models.MessageUI, error) {
	fields, err := objectFields(value)
	if err != nil {
		return models.MessageUI{}, err
	}

	text, _, err := stringField(fields, "mensaje")
	if err != nil {
		return models.MessageUI{}, err
	}

	var ts string
	for _, key := range messageTimeKeys {
		v, _, err := stringField(fields, key)
		if err != nil {
			return models.MessageUI{}, err
		}
		if v != "" {
			ts = v
			break
		}
	}

	estado, _, err := stringField(fields, "estado")
	if err != nil {
		return models.MessageUI{}, err
	}

	return models.MessageUI{
		Text:           text,
		RawTimestamp:   ts,
		IsFromCustomer: flagField(fields["es_cliente"]),
		DeliveryStatus: parseDeliveryStatus(estado),
	}, nil
}

func parseDeliveryStatus(raw string) models.DeliveryStatus {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "sent", "enviado":
		return models.DeliverySent
	case "delivered", "entregado":
		return models.DeliveryDelivered
	case "read", "leido", "leído":
		return models.DeliveryRead
	default:
		return ""
	}
}

// objectFields decodes value as a JSON object without interpreting its fields.
func objectFields(value json.RawMessage) (map[string]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(value)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, fmt.Errorf("entry is not an object")
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		return nil, fmt.Errorf("entry is not an object: %v", err)
	}
	return fields, nil
}

// stringField reads a string field. Numbers are accepted as their literal text.
// A missing or null field is reported with present=false.
func stringField(fields map[string]json.RawMessage, key string) (val string, present bool, err error) {
	raw, ok := fields[key]
	if !ok {
		return "", false, nil
	}
	raw = bytes.TrimSpace(raw)
	if bytes.Equal(raw, []byte("null")) {
		return "", false, nil
	}

	var v any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return "", false, fmt.Errorf("field %s: %v", key, err)
	}

	switch t := v.(type) {
	case string:
		return t, true, nil
	case json.Number:
		return t.String(), true, nil
	default:
		return "", false, fmt.Errorf("field %s is not a string", key)
	}
}

// flagField reads a loose boolean: 1/0, true/false, "1"/"0", "true"/"false".
// Anything else is false.
func flagField(raw json.RawMessage) bool {
	switch strings.Trim(string(bytes.TrimSpace(raw)), `"`) {
	case "1", "true", "TRUE", "True":
		return true
	default:
		return false
	}
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("%w: %v", pkg.ErrMalformedBody, err)
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return fmt.Errorf("%w: expected %q, got %v", pkg.ErrMalformedBody, want, tok)
	}
	return nil
}
