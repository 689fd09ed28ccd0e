package cli

import (
	"fmt"
	"strings"

	"github.com/AlecAivazis/survey/v2"

	"github.com/dyike/ValueArena/config"
)

// agentLabel is how an agent is listed in the picker.
func agentLabel(a config.AgentConfig) string {
	if a.Display == "" || a.Display == a.ID {
		return a.ID
	}
	return fmt.Sprintf("%s (%s)", a.Display, a.ID)
}

// labelsToIDs maps picker answers back to agent ids.
func labelsToIDs(roster []config.AgentConfig, labels []string) []string {
	byLabel := make(map[string]string, len(roster))
	for _, a := range roster {
		byLabel[agentLabel(a)] = a.ID
	}
	ids := make([]string, 0, len(labels))
	for _, l := range labels {
		if id, ok := byLabel[l]; ok {
			ids = append(ids, id)
		}
	}
	return ids
}

// PromptForAgents asks which agents take part in this run.
func PromptForAgents(roster []config.AgentConfig) ([]string, error) {
	options := make([]string, 0, len(roster))
	for _, a := range roster {
		options = append(options, agentLabel(a))
	}

	var selected []string
	prompt := &survey.MultiSelect{
		Message: "Select the agents to run:",
		Options: options,
		Help:    "Use space to select, enter to confirm.",
		Default: options,
	}

	err := survey.AskOne(prompt, &selected, survey.WithValidator(func(val interface{}) error {
		answers, ok := val.([]survey.OptionAnswer)
		if !ok {
			return fmt.Errorf("invalid selection type")
		}
		if len(answers) == 0 {
			return fmt.Errorf("you must select at least one agent")
		}
		return nil
	}))
	if err != nil {
		return nil, err
	}
	return labelsToIDs(roster, selected), nil
}

// PromptForConfirmation asks before spending money on a live cycle.
func PromptForConfirmation(ids []string, cfg *config.Config) (bool, error) {
	fmt.Printf("\nAgents:      %s\nBroker:      %s\nSpend limit: $%.2f\n\n",
		strings.Join(ids, ", "), cfg.Broker, cfg.MaxDailySpend)

	var confirmed bool
	prompt := &survey.Confirm{
		Message: "Run the daily cycle now?",
		Default: true,
	}
	err := survey.AskOne(prompt, &confirmed)
	return confirmed, err
}
