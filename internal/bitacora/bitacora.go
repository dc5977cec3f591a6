// Package bitacora builds the request/response audit envelope returned by every
// catalog operation.
//
// A Ledger ("bitácora") is created for one logical operation, receives exactly
// one Entry through [AddEntry], and is turned into the wire-visible [Response]
// by [OK] or [Fail]. Nothing here is persisted; the ledger lives for a single
// response.
package bitacora

// NotSpecified is the fallback label for unset process, method, api, session
// and user fields.
const NotSpecified = "Not specified"

// Outcome tells the accounting step whether the entry succeeded.
type Outcome string

const (
	OutcomeOK   Outcome = "OK"
	OutcomeFail Outcome = "FAIL"
)

// Ledger is the running log of one operation invocation.
type Ledger struct {
	Success      bool     `json:"success" msgpack:"success"`
	Status       int      `json:"status" msgpack:"status"`
	Process      string   `json:"process" msgpack:"process"`
	MessageUSR   string   `json:"messageUSR" msgpack:"messageUSR"`
	MessageDEV   string   `json:"messageDEV" msgpack:"messageDEV"`
	CountData    int      `json:"countData" msgpack:"countData"`
	CountDataReq int      `json:"countDataReq" msgpack:"countDataReq"`
	CountDataRes int      `json:"countDataRes" msgpack:"countDataRes"`
	CountMsgUSR  int      `json:"countMsgUSR" msgpack:"countMsgUSR"`
	CountMsgDEV  int      `json:"countMsgDEV" msgpack:"countMsgDEV"`
	DBServer     string   `json:"dbServer" msgpack:"dbServer"`
	Server       string   `json:"server" msgpack:"server"`
	Data         []*Entry `json:"data" msgpack:"data"`
	Session      string   `json:"session" msgpack:"session"`
	LoggedUser   string   `json:"loggedUser" msgpack:"loggedUser"`
	FinalRes     bool     `json:"finalRes" msgpack:"finalRes"`
}

// Entry records one wrapped operation attempt.
type Entry struct {
	Success      bool   `json:"success" msgpack:"success"`
	Status       int    `json:"status" msgpack:"status"`
	Process      string `json:"process" msgpack:"process"`
	Principal    bool   `json:"principal" msgpack:"principal"`
	Secuencia    int    `json:"secuencia" msgpack:"secuencia"`
	CountDataReq int    `json:"countDataReq" msgpack:"countDataReq"`
	CountDataRes int    `json:"countDataRes" msgpack:"countDataRes"`
	CountFile    int    `json:"countFile" msgpack:"countFile"`
	MessageUSR   string `json:"messageUSR" msgpack:"messageUSR"`
	MessageDEV   string `json:"messageDEV" msgpack:"messageDEV"`
	Method       string `json:"method" msgpack:"method"`
	API          string `json:"api" msgpack:"api"`
	DataReq      any    `json:"dataReq" msgpack:"dataReq"`
	DataRes      any    `json:"dataRes" msgpack:"dataRes"`
	File         any    `json:"file" msgpack:"file"`
}

// NewLedger returns an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{
		Data: []*Entry{},
	}
}

// NewEntry returns an empty entry. Payload fields start as empty lists.
func NewEntry() *Entry {
	return &Entry{
		DataReq: []any{},
		DataRes: []any{},
		File:    []any{},
	}
}

// AddEntry is the accounting step: it settles the entry's defaults and
// counters, mirrors them into the ledger and appends the entry.
// status and principal only apply when the entry leaves them unset.
func AddEntry(l *Ledger, e *Entry, outcome Outcome, status int, principal bool) *Ledger {
	ok := outcome == OutcomeOK
	e.Success = ok
	l.Success = ok

	if e.Status == 0 {
		e.Status = status
	}
	e.Process = orDefault(e.Process, NotSpecified)
	e.Principal = e.Principal || principal
	e.Method = orDefault(e.Method, NotSpecified)
	e.API = orDefault(e.API, NotSpecified)
	e.Secuencia++

	if e.MessageDEV != "" {
		l.MessageDEV = e.MessageDEV
		l.CountMsgDEV++
	}
	if e.MessageUSR != "" {
		l.MessageUSR = e.MessageUSR
		l.CountMsgUSR++
	}

	e.CountDataReq = Count(e.DataReq)
	l.CountDataReq++

	e.CountDataRes = Count(e.DataRes)
	l.CountDataRes++

	// countFile never reflects a real file list; it is always 0.
	e.CountFile = 0

	l.Status = e.Status
	l.Data = append(l.Data, e)
	l.CountData++

	return l
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func orDefaultInt(i, def int) int {
	if i == 0 {
		return def
	}
	return i
}
