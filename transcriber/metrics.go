package transcriber

import "fmt"

// MetricLines renders the transport side of a result for the report.
func MetricLines(r *Result) []string {
	var lines []string
	if u := r.Upload; u != nil {
		lines = append(lines,
			fmt.Sprintf("audio:      %.1fs | %.1f KB → %.1f KB (%.0f%% smaller)",
				r.DurationSeconds, u.RawKB, u.CompressedKB, u.CompressionPct),
			fmt.Sprintf("encode:     %dms", u.EncodeTime.Milliseconds()),
		)
	}
	if m := r.Network; m != nil {
		reusedStatus := ""
		if m.ConnReused {
			reusedStatus = " (reused)"
		}
		lines = append(lines,
			fmt.Sprintf("conn_wait:  %dms%s", m.ConnWait.Milliseconds(), reusedStatus),
			fmt.Sprintf("dns:        %dms", m.DNS.Milliseconds()),
			fmt.Sprintf("tcp:        %dms", m.TCP.Milliseconds()),
			fmt.Sprintf("tls:        %dms", m.TLS.Milliseconds()),
			fmt.Sprintf("req_head:   %dms", m.ReqHeaders.Milliseconds()),
			fmt.Sprintf("req_body:   %dms", m.ReqBody.Milliseconds()),
			fmt.Sprintf("ttfb:       %dms", m.TTFB.Milliseconds()),
			fmt.Sprintf("download:   %dms", m.Download.Milliseconds()),
			fmt.Sprintf("total:      %dms", m.Sum().Milliseconds()),
		)
	}
	if r.ProcessingSeconds > 0 {
		lines = append(lines, fmt.Sprintf("engine:     %.2fs", r.ProcessingSeconds))
	}
	if r.RequestID != "" && r.RequestID != "?" {
		lines = append(lines, fmt.Sprintf("request:    %s", r.RequestID))
	}
	return lines
}
