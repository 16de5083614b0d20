// Package a2a holds the wire types of the agent-to-agent JSON-RPC protocol
// spoken by specialist servers: a single tasks/send method carrying text
// parts in, and artifacts of text parts out.
package a2a

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Version is the JSON-RPC protocol version.
const Version = "2.0"

// MethodTasksSend is the only method the protocol defines.
const MethodTasksSend = "tasks/send"

// JSON-RPC error codes.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
)

// Request is a JSON-RPC request.
type Request struct {
	JSONRPC string         `json:"jsonrpc"`
	ID      string         `json:"id"`
	Method  string         `json:"method"`
	Params  TaskSendParams `json:"params"`
}

// TaskSendParams are the params of tasks/send.
type TaskSendParams struct {
	ID        string         `json:"id,omitempty"`
	SessionID string         `json:"sessionId,omitempty"`
	Message   Message        `json:"message"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// Message is one conversational turn.
type Message struct {
	Role  string `json:"role"`
	Parts []Part `json:"parts"`
}

// Part is a typed message fragment. Only text parts are used.
type Part struct {
	Type string   `json:"type"`
	Text PartText `json:"text"`
}

// PartText is the text of a part. Peers send either a bare string or an
// object {"raw": "..."}; both decode into Value.
type PartText struct {
	Value string
	// Raw selects the object form when encoding.
	Raw bool
}

// MarshalJSON implements json.Marshaler.
func (t PartText) MarshalJSON() ([]byte, error) {
	if t.Raw {
		return json.Marshal(struct {
			Raw string `json:"raw"`
		}{t.Value})
	}
	return json.Marshal(t.Value)
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *PartText) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		t.Raw = false
		return json.Unmarshal(data, &t.Value)
	}
	var obj struct {
		Raw *string `json:"raw"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("decoding text part: %w", err)
	}
	if obj.Raw == nil {
		return errors.New("text part object has no raw field")
	}
	t.Value, t.Raw = *obj.Raw, true
	return nil
}

// TextPart builds a plain text part.
func TextPart(text string) Part {
	return Part{Type: "text", Text: PartText{Value: text}}
}

// RawTextPart builds a text part in the {"raw": ...} form.
func RawTextPart(text string) Part {
	return Part{Type: "text", Text: PartText{Value: text, Raw: true}}
}

// Text joins the text parts of m.
func (m Message) Text() string {
	return joinText(m.Parts)
}

// Response is a JSON-RPC response. Exactly one of Result and Error is set.
type Response struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      string      `json:"id"`
	Result  *TaskResult `json:"result,omitempty"`
	Error   *Error      `json:"error,omitempty"`
}

// TaskResult is the result of tasks/send.
type TaskResult struct {
	ID        string         `json:"id,omitempty"`
	SessionID string         `json:"sessionId,omitempty"`
	Status    TaskStatus     `json:"status"`
	Artifacts []Artifact     `json:"artifacts"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// TaskStatus reports the task state.
type TaskStatus struct {
	State string `json:"state"`
}

// Artifact is one output of a task.
type Artifact struct {
	Parts     []Part `json:"parts"`
	Index     int    `json:"index"`
	Append    bool   `json:"append"`
	LastChunk bool   `json:"lastChunk"`
}

// Error is a JSON-RPC error object.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("json-rpc error %d: %s", e.Code, e.Message)
}

// Text returns the text of the first artifact.
func (r *TaskResult) Text() (string, error) {
	if r == nil || len(r.Artifacts) == 0 {
		return "", errors.New("task result has no artifacts")
	}
	text := joinText(r.Artifacts[0].Parts)
	if strings.TrimSpace(text) == "" {
		return "", errors.New("first artifact has no text")
	}
	return text, nil
}

// NewTaskSendRequest builds a tasks/send request carrying text.
func NewTaskSendRequest(id, taskID, text string, metadata map[string]any) Request {
	return Request{
		JSONRPC: Version,
		ID:      id,
		Method:  MethodTasksSend,
		Params: TaskSendParams{
			ID:       taskID,
			Message:  Message{Role: "user", Parts: []Part{TextPart(text)}},
			Metadata: metadata,
		},
	}
}

// NewResultResponse wraps output text in a completed task result.
func NewResultResponse(id, taskID, sessionID, text string, metadata map[string]any) Response {
	return Response{
		JSONRPC: Version,
		ID:      id,
		Result: &TaskResult{
			ID:        taskID,
			SessionID: sessionID,
			Status:    TaskStatus{State: "completed"},
			Artifacts: []Artifact{{Parts: []Part{RawTextPart(text)}, LastChunk: true}},
			Metadata:  metadata,
		},
	}
}

// NewErrorResponse builds an error response.
func NewErrorResponse(id string, code int, message string) Response {
	return Response{
		JSONRPC: Version,
		ID:      id,
		Error:   &Error{Code: code, Message: message},
	}
}

// Validate checks a request the way a server must before running it.
func (r Request) Validate() *Error {
	if r.JSONRPC != Version {
		return &Error{Code: CodeInvalidRequest, Message: "jsonrpc must be \"2.0\""}
	}
	if r.Method != MethodTasksSend {
		return &Error{Code: CodeMethodNotFound, Message: "Method not found"}
	}
	if strings.TrimSpace(r.Params.Message.Text()) == "" {
		return &Error{Code: CodeInvalidParams, Message: "Invalid message format: no text content found in message parts"}
	}
	return nil
}

// AgentCard describes an agent at /.well-known/agent.json.
type AgentCard struct {
	Name         string       `json:"name"`
	Description  string       `json:"description"`
	URL          string       `json:"url"`
	Version      string       `json:"version"`
	Capabilities Capabilities `json:"capabilities"`
	Skills       []Skill      `json:"skills"`
}

// Capabilities lists optional protocol features.
type Capabilities struct {
	Streaming         bool `json:"streaming"`
	PushNotifications bool `json:"pushNotifications"`
}

// Skill is one thing the agent can do.
type Skill struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Tags        []string `json:"tags,omitempty"`
}

func joinText(parts []Part) string {
	var texts []string
	for _, p := range parts {
		if p.Type != "" && p.Type != "text" {
			continue
		}
		if p.Text.Value != "" {
			texts = append(texts, p.Text.Value)
		}
	}
	return strings.Join(texts, "\n")
}
