package transcript

import (
	"fmt"
	"math/rand"
)

var sampleNames = []string{"Alex Smith", "Jordan Lee", "Taylor Brown", "Morgan Davis"}

var sampleScenarios = []string{
	"Simple appointment booking",
	"Appointment rescheduling",
	"Cancellation request",
	"New customer inquiry",
}

// Generate produces a synthetic appointment conversation with between
// minTurns and maxTurns turns, alternating customer and agent.
func Generate(rng *rand.Rand, minTurns, maxTurns int) (string, []Turn) {
	scenario := sampleScenarios[rng.Intn(len(sampleScenarios))]
	name := sampleNames[rng.Intn(len(sampleNames))]
	n := minTurns
	if maxTurns > minTurns {
		n += rng.Intn(maxTurns - minTurns + 1)
	}

	turns := []Turn{
		{Participant: CustomerID, Content: "Hello, I'd like to schedule an appointment."},
		{Participant: AgentID, Content: "I'd be happy to help you schedule an appointment. May I have your name?"},
		{Participant: CustomerID, Content: fmt.Sprintf("Yes, it's %s.", name)},
		{Participant: AgentID, Content: fmt.Sprintf("Thank you, %s. What type of appointment are you looking for?", name)},
	}
	for i := len(turns); i < n; i++ {
		if i%2 == 0 {
			turns = append(turns, Turn{Participant: CustomerID, Content: "That works for me."})
		} else {
			turns = append(turns, Turn{Participant: AgentID, Content: "Perfect, I'll get that set up for you."})
		}
	}
	return scenario, turns
}
