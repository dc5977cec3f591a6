package bitacora

// DefaultLabel is the response-level fallback for the database and server
// labels. It does not consult the wrapper's database-name chain.
const DefaultLabel = "Default"

// Response is the standardized envelope returned to the caller for every
// operation, successful or not.
type Response struct {
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

// OK builds the success-shaped response for l.
func OK(l *Ledger) Response {
	return Response{
		Success:      true,
		Status:       orDefaultInt(l.Status, 200),
		Process:      orDefault(l.Process, NotSpecified),
		MessageUSR:   orDefault(l.MessageUSR, "OK"),
		MessageDEV:   l.MessageDEV,
		CountData:    l.CountData,
		CountDataReq: l.CountDataReq,
		CountDataRes: l.CountDataRes,
		CountMsgUSR:  l.CountMsgUSR,
		CountMsgDEV:  l.CountMsgDEV,
		DBServer:     orDefault(l.DBServer, DefaultLabel),
		Server:       orDefault(l.Server, DefaultLabel),
		Data:         entries(l),
		Session:      orDefault(l.Session, NotSpecified),
		LoggedUser:   orDefault(l.LoggedUser, NotSpecified),
		FinalRes:     true,
	}
}

// Fail builds the failure-shaped response for l.
func Fail(l *Ledger) Response {
	return Response{
		Success:      false,
		Status:       orDefaultInt(l.Status, 500),
		Process:      orDefault(l.Process, NotSpecified),
		MessageUSR:   orDefault(l.MessageUSR, "An error occurred."),
		MessageDEV:   orDefault(l.MessageDEV, NotSpecified),
		CountData:    l.CountData,
		CountDataReq: l.CountDataReq,
		CountDataRes: l.CountDataRes,
		CountMsgUSR:  l.CountMsgUSR,
		CountMsgDEV:  l.CountMsgDEV,
		DBServer:     orDefault(l.DBServer, DefaultLabel),
		Server:       orDefault(l.Server, DefaultLabel),
		Data:         entries(l),
		Session:      orDefault(l.Session, NotSpecified),
		LoggedUser:   orDefault(l.LoggedUser, NotSpecified),
		FinalRes:     true,
	}
}

// Principal returns the first principal entry, or the first entry when none is
// flagged. Returns nil for an empty response.
func (r Response) Principal() *Entry {
	for _, e := range r.Data {
		if e.Principal {
			return e
		}
	}
	if len(r.Data) > 0 {
		return r.Data[0]
	}
	return nil
}

func entries(l *Ledger) []*Entry {
	if l.Data == nil {
		return []*Entry{}
	}
	return l.Data
}
