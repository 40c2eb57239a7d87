package domain

import (
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// MarshalRule encodes a rule as a JSON object carrying its "type" discriminator
// alongside the variant's own fields.
func MarshalRule(r Rule) ([]byte, error) {
	if r == nil {
		return nil, fmt.Errorf("%w: nil rule", ErrInvalidRule)
	}

	body, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s rule: %w", r.Type(), err)
	}

	tagged, err := sjson.SetBytes(body, "type", string(r.Type()))
	if err != nil {
		return nil, fmt.Errorf("failed to tag %s rule: %w", r.Type(), err)
	}
	return tagged, nil
}

// UnmarshalRule decodes a JSON object produced by MarshalRule back into its variant.
// It does not validate field bounds; call Validate on the result.
func UnmarshalRule(data []byte) (Rule, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("%w: malformed JSON", ErrInvalidRule)
	}

	tag := gjson.GetBytes(data, "type")
	if !tag.Exists() {
		return nil, fmt.Errorf("%w: missing type", ErrUnknownRuleType)
	}

	switch RuleType(tag.String()) {
	case RuleDaily:
		return decodeRule[DailyRule](data)
	case RuleWeekly:
		return decodeRule[WeeklyRule](data)
	case RuleMonthly:
		return decodeRule[MonthlyRule](data)
	case RuleBimonthly:
		return decodeRule[BimonthlyRule](data)
	case RuleQuarterly:
		return decodeRule[QuarterlyRule](data)
	case RuleYearly:
		return decodeRule[YearlyRule](data)
	case RuleNthWeekday:
		return decodeRule[NthWeekdayRule](data)
	case RuleMultiMonth:
		return decodeRule[MultiMonthRule](data)
	case RuleMultiDate:
		return decodeRule[MultiDateRule](data)
	case RuleMultiYear:
		return decodeRule[MultiYearRule](data)
	case RuleOneTime:
		return decodeRule[OneTimeRule](data)
	case RuleAsNeeded:
		return AsNeededRule{}, nil
	case RuleAsOccurs:
		return AsOccursRule{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownRuleType, tag.String())
	}
}

func decodeRule[T Rule](data []byte) (Rule, error) {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRule, err)
	}
	return v, nil
}

// RuleJSON embeds a Rule in a larger JSON document.
type RuleJSON struct {
	Rule Rule
}

func (r RuleJSON) MarshalJSON() ([]byte, error) {
	if r.Rule == nil {
		return []byte("null"), nil
	}
	return MarshalRule(r.Rule)
}

func (r *RuleJSON) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		r.Rule = nil
		return nil
	}
	rule, err := UnmarshalRule(data)
	if err != nil {
		return err
	}
	r.Rule = rule
	return nil
}
