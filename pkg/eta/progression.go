package eta

import "strings"

// Stages is the five-step display sequence shown to customers.
var Stages = []string{"placed", "preparing", "cooking", "ready", "delivered"}

type Step struct {
	Status    string `json:"status"`
	Label     string `json:"label"`
	Completed bool   `json:"completed"`
	Active    bool   `json:"active"`
}

type Progression struct {
	CurrentStatus string `json:"current_status"`
	Percentage    int    `json:"progress_percentage"`
	Steps         []Step `json:"steps"`
}

// displayStage folds the order states onto the display sequence. Unknown
// states fall back to the first stage.
func displayStage(status string) int {
	switch status {
	case "pending", "confirmed":
		status = "placed"
	case "out_for_delivery":
		status = "ready"
	}
	for i, s := range Stages {
		if s == status {
			return i
		}
	}
	return 0
}

func StatusProgression(status string) Progression {
	current := displayStage(status)
	steps := make([]Step, len(Stages))
	for i, s := range Stages {
		steps[i] = Step{
			Status:    s,
			Label:     strings.ToUpper(s[:1]) + s[1:],
			Completed: i <= current,
			Active:    i == current,
		}
	}
	return Progression{
		CurrentStatus: status,
		Percentage:    current * 100 / (len(Stages) - 1),
		Steps:         steps,
	}
}
