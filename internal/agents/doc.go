// Package agents implementa la pipeline multi-stage di generazione contenuti.
//
// Il sistema include:
//   - Persona: un ruolo (goal, backstory) legato a un ModelBackend, con capability opzionali
//   - TaskSpec: uno stage con template di descrizione e hint sull'output atteso
//   - Pipeline: esecuzione strettamente sequenziale con contesto cumulativo e semantica tutto-o-niente
//   - Builder: costruisce la pipeline da un catalogo dichiarativo risolvendo le capability una sola volta
//   - Preset viral: Researcher -> Writer -> (Editor opzionale), filtrato per piattaforme e tono
//
// Esempio di utilizzo:
//
//	builder := agents.NewBuilder(backend, constructors, stats.Default())
//	pipeline, err := builder.BuildPreset(agents.DefaultOptions())
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	result, err := pipeline.Run(ctx, "AI in marketing")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(result.Document())
package agents
