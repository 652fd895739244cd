package agents

import "strings"

const (
	// TopicPlaceholder viene sostituito con il topic della run
	TopicPlaceholder = "{topic}"

	// PreviousPlaceholder viene sostituito con l'output dello stage precedente
	// (solo nelle query delle capability)
	PreviousPlaceholder = "{previous}"
)

// TaskSpec è uno stage della pipeline
type TaskSpec struct {
	// ID è la posizione 1-based nella pipeline, assegnata da NewPipeline
	ID int

	// Name identifica lo stage nei log, nelle metriche e nel documento finale
	Name string

	DescriptionTemplate string
	ExpectedOutputHint  string

	// CapabilityQuery è il template della query per le capability della persona;
	// se vuoto si usa la descrizione
	CapabilityQuery string

	Persona *Persona
}

// Description restituisce la descrizione con il topic sostituito
func (t *TaskSpec) Description(topic string) string {
	return substituteTopic(t.DescriptionTemplate, topic)
}

// Query restituisce la query per le capability
func (t *TaskSpec) Query(topic, previous string) string {
	tmpl := t.CapabilityQuery
	if tmpl == "" {
		tmpl = t.DescriptionTemplate
	}
	return strings.NewReplacer(
		TopicPlaceholder, topic,
		PreviousPlaceholder, previous,
	).Replace(tmpl)
}

// substituteTopic sostituisce il topic in un solo passaggio: il testo inserito
// non viene mai riesaminato, quindi un topic contenente "{topic}" resta letterale
func substituteTopic(tmpl, topic string) string {
	return strings.NewReplacer(TopicPlaceholder, topic).Replace(tmpl)
}
