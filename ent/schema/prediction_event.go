package schema

import (
	"entgo.io/ent"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// PredictionEvent records one prediction attempt, successful or not.
type PredictionEvent struct {
	ent.Schema
}

func (PredictionEvent) Mixin() []ent.Mixin {
	return []ent.Mixin{EventMixin{}}
}

func (PredictionEvent) Fields() []ent.Field {
	return []ent.Field{
		field.String("session_id").
			NotEmpty().
			Comment("TUI session or cli-<uuid>"),
		field.String("model_path").
			Comment("Model artifact the prediction ran against"),
		field.String("features").
			Comment("JSON object of the seven model columns"),
		field.Float("prob_no_event").
			Default(0),
		field.Float("prob_event").
			Default(0),
		field.Bool("high_risk").
			Default(false),
		field.Bool("success"),
		field.String("error_message").
			Default("").
			Comment("User-facing message when success is false"),
	}
}

func (PredictionEvent) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("session_id"),
	}
}
