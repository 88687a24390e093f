package main

import (
	"fmt"
	"io"

	"estateempire.io/internal/persistence/indexdb"
	"estateempire.io/internal/persistence/mirror"
	"estateempire.io/internal/sim/engine"
)

func gauge(w io.Writer, name, help string, v any) {
	fmt.Fprintf(w, "# HELP %s %s\n", name, help)
	fmt.Fprintf(w, "# TYPE %s gauge\n", name)
	fmt.Fprintf(w, "%s %v\n", name, v)
}

func counter(w io.Writer, name, help string, v uint64) {
	fmt.Fprintf(w, "# HELP %s %s\n", name, help)
	fmt.Fprintf(w, "# TYPE %s counter\n", name)
	fmt.Fprintf(w, "%s %d\n", name, v)
}

func boolGauge(b bool) int {
	if b {
		return 1
	}
	return 0
}

// writeMetrics renders the minimal Prometheus exposition format.
func writeMetrics(w io.Writer, m engine.DriverMetrics, sessions int64) {
	gauge(w, "estate_day", "Current in-game day.", m.Day)
	gauge(w, "estate_money", "Cash balance.", fmt.Sprintf("%.2f", m.Money))
	gauge(w, "estate_reputation", "Reputation (0..100).", fmt.Sprintf("%.2f", m.Reputation))
	gauge(w, "estate_level", "Player level.", m.Level)
	gauge(w, "estate_properties_owned", "Owned properties.", m.Owned)
	gauge(w, "estate_properties_occupied", "Owned properties with a tenant.", m.Occupied)
	gauge(w, "estate_daily_cash_flow", "Projected net income per day.", fmt.Sprintf("%.2f", m.CashFlow))
	gauge(w, "estate_time_scale", "Simulation speed multiplier (0 = paused).", m.TimeScale)
	gauge(w, "estate_suspended", "1 while a pending event, level-up or pause blocks the clock.", boolGauge(m.Suspended))
	gauge(w, "estate_modal_open", "1 while a UI modal holds the clock.", boolGauge(m.ModalOpen))
	gauge(w, "estate_step_ms", "Last day step duration in milliseconds.", fmt.Sprintf("%.3f", m.StepMS))
	gauge(w, "estate_subscribers", "Driver update subscribers.", m.Subscribers)
	gauge(w, "estate_ws_sessions", "Connected websocket sessions.", sessions)
	counter(w, "estate_days_total", "Days simulated by this process.", m.DaysTotal)
	counter(w, "estate_actions_total", "Player actions received.", m.ActionsTotal)
	counter(w, "estate_actions_rejected_total", "Player actions rejected.", m.RejectedTotal)
}

func writeIndexMetrics(w io.Writer, s indexdb.Stats) {
	gauge(w, "estate_index_queue_depth", "Index writer queue depth.", s.QueueDepth)
	gauge(w, "estate_index_queue_capacity", "Index writer queue capacity.", s.QueueCapacity)
	counter(w, "estate_index_drop_day_total", "Day rows dropped under backpressure.", s.DropDayTotal)
	counter(w, "estate_index_drop_action_total", "Action rows dropped under backpressure.", s.DropActionTotal)
	counter(w, "estate_index_drop_slot_total", "Slot rows dropped under backpressure.", s.DropSlotTotal)
}

func writeMirrorMetrics(w io.Writer, s mirror.Stats) {
	gauge(w, "estate_s3_mirror_queue_depth", "Current S3 mirror queue depth.", s.QueueDepth)
	gauge(w, "estate_s3_mirror_queue_capacity", "S3 mirror queue capacity.", s.QueueCapacity)
	counter(w, "estate_s3_mirror_enqueued_total", "Total mirror enqueue attempts.", s.EnqueuedTotal)
	counter(w, "estate_s3_mirror_queue_saturated_total", "Enqueue attempts that found the queue full.", s.QueueSaturatedTotal)
	counter(w, "estate_s3_mirror_dropped_total", "Files dropped because the queue stayed full.", s.DroppedTotal)
	counter(w, "estate_s3_mirror_upload_success_total", "Successful uploads.", s.UploadSuccessTotal)
	counter(w, "estate_s3_mirror_upload_fail_total", "Uploads that failed after retry.", s.UploadFailTotal)
	gauge(w, "estate_s3_mirror_last_success_unix", "Unix time of the last successful upload.", s.LastSuccessUnix)
	gauge(w, "estate_s3_mirror_last_error_unix", "Unix time of the last failed upload.", s.LastErrorUnix)
}
