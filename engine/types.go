package engine

import (
	"encoding/json"
	"time"

	"github.com/remiges-tech/sift/engine/pg/batchsqlc"
)

// JSONstr is a string that is known to contain well-formed JSON.
type JSONstr struct {
	value string
	valid bool
}

// NewJSONstr creates a new JSONstr from a string. If the input string is
// empty, it returns a valid JSONstr holding an empty JSON object.
func NewJSONstr(s string) (JSONstr, error) {
	if s == "" {
		return JSONstr{value: "{}", valid: true}, nil
	}
	var js json.RawMessage
	if err := json.Unmarshal([]byte(s), &js); err != nil {
		return JSONstr{}, err
	}
	return JSONstr{value: s, valid: true}, nil
}

// String returns the JSON string.
func (j JSONstr) String() string {
	return j.value
}

// IsValid reports whether the JSONstr holds parseable JSON.
func (j JSONstr) IsValid() bool {
	return j.valid
}

// BatchStatus_t is the processing status of a batch.
type BatchStatus_t int

const (
	BatchUnknown BatchStatus_t = iota
	BatchRunning
	BatchPaused
	BatchCancelled
	BatchComplete
)

func (s BatchStatus_t) String() string {
	switch s {
	case BatchRunning:
		return "running"
	case BatchPaused:
		return "paused"
	case BatchCancelled:
		return "cancelled"
	case BatchComplete:
		return "complete"
	default:
		return "unknown"
	}
}

func (s BatchStatus_t) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// ItemStatus_t is the processing status of a single item within a batch.
type ItemStatus_t int

const (
	ItemUnknown ItemStatus_t = iota
	ItemPending
	ItemRunning
	ItemComplete
	ItemFailed
	ItemCancelled
)

func (s ItemStatus_t) String() string {
	switch s {
	case ItemPending:
		return "pending"
	case ItemRunning:
		return "running"
	case ItemComplete:
		return "complete"
	case ItemFailed:
		return "failed"
	case ItemCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

func (s ItemStatus_t) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func getBatchStatus(status batchsqlc.BatchStatusEnum) BatchStatus_t {
	switch status {
	case batchsqlc.BatchStatusEnumRunning:
		return BatchRunning
	case batchsqlc.BatchStatusEnumPaused:
		return BatchPaused
	case batchsqlc.BatchStatusEnumCancelled:
		return BatchCancelled
	case batchsqlc.BatchStatusEnumComplete:
		return BatchComplete
	default:
		return BatchUnknown
	}
}

func getItemStatus(status batchsqlc.ItemStatusEnum) ItemStatus_t {
	switch status {
	case batchsqlc.ItemStatusEnumPending:
		return ItemPending
	case batchsqlc.ItemStatusEnumRunning:
		return ItemRunning
	case batchsqlc.ItemStatusEnumComplete:
		return ItemComplete
	case batchsqlc.ItemStatusEnumFailed:
		return ItemFailed
	case batchsqlc.ItemStatusEnumCancelled:
		return ItemCancelled
	default:
		return ItemUnknown
	}
}

// FileInput_t is one uploaded resume handed to BatchCreate.
type FileInput_t struct {
	Filename string
	Contents []byte
}

// BatchDetails_t is the full read model of a batch, counters included.
type BatchDetails_t struct {
	ID         string        `json:"id"`
	Owner      string        `json:"owner"`
	Status     BatchStatus_t `json:"status"`
	JD         string        `json:"jd"`
	NTotal     int32         `json:"ntotal"`
	NComplete  int32         `json:"ncomplete"`
	NFailed    int32         `json:"nfailed"`
	NCancelled int32         `json:"ncancelled"`
	NSkipped   int32         `json:"nskipped"`
	Reqat      time.Time     `json:"reqat"`
	Updatedat  time.Time     `json:"updatedat"`
	Doneat     time.Time     `json:"doneat"`
}

// ItemDetails_t is the read model of a single item.
type ItemDetails_t struct {
	ID         string          `json:"id"`
	BatchID    string          `json:"batch"`
	Filename   string          `json:"filename"`
	Fileref    string          `json:"fileref"`
	Filehash   string          `json:"filehash"`
	Status     ItemStatus_t    `json:"status"`
	WorkerID   string          `json:"workerid,omitempty"`
	NRetries   int32           `json:"nretries"`
	MaxRetries int32           `json:"maxretries"`
	Res        json.RawMessage `json:"res,omitempty"`
	Errcode    string          `json:"errcode,omitempty"`
	Errmsg     string          `json:"errmsg,omitempty"`
	Reqat      time.Time       `json:"reqat"`
	Startat    time.Time       `json:"startat"`
	Updatedat  time.Time       `json:"updatedat"`
	Doneat     time.Time       `json:"doneat"`
}

func makeBatchDetails(b batchsqlc.Batch) BatchDetails_t {
	return BatchDetails_t{
		ID:         b.ID.String(),
		Owner:      b.Owner,
		Status:     getBatchStatus(b.Status),
		JD:         b.Jd,
		NTotal:     b.Ntotal,
		NComplete:  b.Ncomplete,
		NFailed:    b.Nfailed,
		NCancelled: b.Ncancelled,
		NSkipped:   b.Nskipped,
		Reqat:      b.Reqat.Time,
		Updatedat:  b.Updatedat.Time,
		Doneat:     b.Doneat.Time,
	}
}

func makeItemDetails(i batchsqlc.Item) ItemDetails_t {
	d := ItemDetails_t{
		ID:         i.ID.String(),
		BatchID:    i.Batch.String(),
		Filename:   i.Filename,
		Fileref:    i.Fileref,
		Filehash:   i.Filehash,
		Status:     getItemStatus(i.Status),
		WorkerID:   i.Workerid.String,
		NRetries:   i.Nretries,
		MaxRetries: i.Maxretries,
		Errcode:    i.Errcode.String,
		Errmsg:     i.Errmsg.String,
		Reqat:      i.Reqat.Time,
		Startat:    i.Startat.Time,
		Updatedat:  i.Updatedat.Time,
		Doneat:     i.Doneat.Time,
	}
	if len(i.Res) > 0 {
		d.Res = json.RawMessage(i.Res)
	}
	return d
}

// ControlAction is an operator instruction applied to a batch.
type ControlAction string

const (
	ActionPause  ControlAction = "pause"
	ActionResume ControlAction = "resume"
	ActionCancel ControlAction = "cancel"
)

// ControlOutcome reports what a control request actually did. A request
// that finds the batch already in (or past) the target state is reported
// as not applicable rather than as an error.
type ControlOutcome string

const (
	OutcomeApplied       ControlOutcome = "applied"
	OutcomeNotApplicable ControlOutcome = "not_applicable"
)

// EngineConfig holds the tunables of the screening engine. Zero values are
// replaced with defaults by New, except MaxRetries where a negative value
// means "no retries" and zero means "use the default".
type EngineConfig struct {
	// LeaseSeconds is how long a claimed item may stay in running state
	// before the watchdog treats its worker as dead.
	LeaseSeconds int
	// MaxRetries is the number of transient failures allowed per item
	// before it is marked failed. Negative disables retries.
	MaxRetries int
	// WorkerBackoffBaseMs is the base delay before a requeued item's
	// worker continues, doubled per retry already consumed.
	WorkerBackoffBaseMs int
	// WatchdogIntervalMs is the period of the lease recovery scan.
	WatchdogIntervalMs int
	// BatchStatusCacheDurSec is the Redis TTL for non-terminal batch
	// status entries. Terminal statuses get 100x this.
	BatchStatusCacheDurSec int
	// StorageBucket is the object store bucket holding uploaded resumes.
	StorageBucket string
}

