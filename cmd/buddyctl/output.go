package main

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/matheus3301/buddytalk/internal/api"
	"github.com/matheus3301/buddytalk/internal/chat"
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeJSONLine(w io.Writer, v any) error {
	return json.NewEncoder(w).Encode(v)
}

func writeState(w io.Writer, st *api.StateView) {
	_, _ = fmt.Fprintf(w, "Session:  %s\n", st.Session)
	_, _ = fmt.Fprintf(w, "Channel:  %s\n", orDash(st.ChannelID))
	_, _ = fmt.Fprintf(w, "User:     %s\n", orDash(st.UserID))
	_, _ = fmt.Fprintf(w, "Older:    %s\n", st.Older)
	_, _ = fmt.Fprintf(w, "Newer:    %s\n", st.Newer)
	_, _ = fmt.Fprintf(w, "Loading:  %t\n", st.Loading)
	_, _ = fmt.Fprintf(w, "Sending:  %t\n", st.Sending)
	_, _ = fmt.Fprintf(w, "Failed:   %d\n", st.FailedCount)
	if st.Degraded {
		_, _ = fmt.Fprintln(w, "Store:    degraded (failed sends kept in memory only)")
	}
	_, _ = fmt.Fprintf(w, "Uptime:   %s\n", (time.Duration(st.UptimeMs) * time.Millisecond).Round(time.Second))
	_, _ = fmt.Fprintln(w)
	writeMessages(w, st.Messages)
}

func writeMessages(w io.Writer, msgs []chat.Message) {
	if len(msgs) == 0 {
		_, _ = fmt.Fprintln(w, "No messages yet.")
		return
	}
	for _, m := range msgs {
		marker := ""
		if m.Status == chat.Failed {
			marker = " [failed]"
		}
		_, _ = fmt.Fprintf(w, "%s  %-8s %s%s\n", m.Timestamp.Local().Format("03:04 PM"), m.SenderID, m.Text, marker)
	}
}

func writeResult(w io.Writer, res *api.Result) {
	if !res.Accepted {
		_, _ = fmt.Fprintf(w, "rejected: %s\n", res.Reason)
		if res.Message != nil {
			_, _ = fmt.Fprintf(w, "kept as failed send %s\n", res.Message.ID)
		}
		return
	}
	if res.Message != nil {
		_, _ = fmt.Fprintf(w, "sent %s\n", res.Message.ID)
		return
	}
	_, _ = fmt.Fprintln(w, "ok")
}

func writeEvent(w io.Writer, env *api.Envelope) {
	line := fmt.Sprintf("%s  %-20s", env.OccurredAt.Local().Format(time.TimeOnly), env.Kind)
	if n, ok := env.Notification(); ok {
		line += " " + n.Text
	} else if len(env.Payload) > 0 {
		line += " " + string(env.Payload)
	}
	_, _ = fmt.Fprintln(w, line)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
