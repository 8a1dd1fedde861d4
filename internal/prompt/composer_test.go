package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"echo-companion-server/internal/model"
)

func strPtr(s string) *string { return &s }

func fullProfile() *model.Profile {
	return &model.Profile{
		UserID:          1,
		Name:            "Camille",
		Age:             strPtr("28"),
		Pronouns:        strPtr("elle"),
		Profession:      strPtr("graphiste"),
		DailyRoutine:    strPtr("yoga le matin"),
		SelfCareHabits:  strPtr("journaling"),
		MoodTriggers:    strPtr("le bruit"),
		Goals:           strPtr("lancer mon studio"),
		FavoriteQuotes:  strPtr("Carpe diem"),
		Interests:       strPtr("peinture, randonnée"),
		PersonalityType: strPtr("INFJ"),
	}
}

func TestSystemMessageFallbackWhenIncomplete(t *testing.T) {
	tests := []struct {
		name    string
		profile *model.Profile
	}{
		{name: "nil-profile", profile: nil},
		{name: "empty-name", profile: &model.Profile{UserID: 1}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := SystemMessage(Input{Profile: tc.profile, Today: "2026-08-31"})
			assert.Equal(t, FallbackSystemMessage, got)
		})
	}
}

func TestSystemMessageDeterministic(t *testing.T) {
	in := Input{
		Profile: fullProfile(),
		Today:   "2026-08-31",
		Summaries: []model.SessionSummary{
			{Humeur: "sereine", Sujets: []string{"travail"}, InfosCles: []string{"nouveau poste"}, Resume: "RAS", Date: "2026-08-30 21:00"},
		},
		Checkins: []model.CheckIn{
			{UserID: 1, Date: "2026-08-31", Label: "épanouie", Secondary: "motivée"},
			{UserID: 1, Date: "2026-08-30", Label: "fatiguée"},
		},
	}

	first := SystemMessage(in)
	second := SystemMessage(in)
	// 相同输入必须产出逐字节相同的提示词
	assert.Equal(t, first, second)
}

func TestSystemMessageProfileBlock(t *testing.T) {
	got := SystemMessage(Input{Profile: fullProfile(), Today: "2026-08-31"})

	assert.Contains(t, got, "- Prénom : Camille\n")
	assert.Contains(t, got, "- Âge : 28\n")
	assert.Contains(t, got, "- Type de personnalité : INFJ\n")
	assert.Contains(t, got, "- Centres d'intérêt : peinture, randonnée\n")
}

func TestSystemMessageEmptyFieldsRendered(t *testing.T) {
	profile := &model.Profile{UserID: 1, Name: "Camille"}
	got := SystemMessage(Input{Profile: profile, Today: "2026-08-31"})

	// 空字段不省略行，统一写 non précisé
	assert.Equal(t, 10, strings.Count(got, "non précisé"))
	assert.Contains(t, got, "- Âge : non précisé\n")
	assert.Contains(t, got, "- Objectifs : non précisé\n")
}

func TestSystemMessageCheckinBlock(t *testing.T) {
	in := Input{
		Profile: fullProfile(),
		Today:   "2026-08-31",
		Checkins: []model.CheckIn{
			{Date: "2026-08-31", Label: "épanouie", Secondary: "motivée"},
			{Date: "2026-08-30", Label: "fatiguée"},
			{Date: "2026-08-29", Label: "stressée"},
			{Date: "2026-08-28", Label: "calme"},
		},
	}
	got := SystemMessage(in)

	assert.Contains(t, got, "Aujourd'hui (2026-08-31), elle se sent : épanouie (motivée)")
	assert.Contains(t, got, "- 2026-08-30 : fatiguée\n")
	assert.Contains(t, got, "- 2026-08-29 : stressée\n")
	// 今日之外最多两条历史签到
	assert.NotContains(t, got, "2026-08-28")
	// 有今日签到时触发语气指令
	assert.Contains(t, got, "Adapte ton ton à son humeur du jour (épanouie).")
}

func TestSystemMessageNoCheckinToday(t *testing.T) {
	in := Input{
		Profile:  fullProfile(),
		Today:    "2026-08-31",
		Checkins: []model.CheckIn{{Date: "2026-08-29", Label: "calme"}},
	}
	got := SystemMessage(in)

	assert.Contains(t, got, "Pas de check-in aujourd'hui.")
	assert.NotContains(t, got, "Adapte ton ton à son humeur du jour")
}

func TestSystemMessageHistoryBlock(t *testing.T) {
	in := Input{
		Profile: fullProfile(),
		Today:   "2026-08-31",
		Summaries: []model.SessionSummary{
			{Humeur: "sereine", Sujets: []string{"travail", "famille"}, InfosCles: []string{"déménagement"}, Resume: "Une bonne journée.", Date: "2026-08-30 21:00"},
		},
	}
	got := SystemMessage(in)

	assert.Contains(t, got, "[2026-08-30 21:00] sereine | travail, famille | déménagement | Une bonne journée.\n")
}

func TestSystemMessageHistoryCapped(t *testing.T) {
	summaries := make([]model.SessionSummary, MaxSummaries+3)
	for i := range summaries {
		summaries[i] = model.SessionSummary{Humeur: "neutre", Resume: "r", Date: "2026-08-01 10:00"}
	}
	got := SystemMessage(Input{Profile: fullProfile(), Today: "2026-08-31", Summaries: summaries})

	assert.Equal(t, MaxSummaries, strings.Count(got, "[2026-08-01 10:00]"))
}

func TestSystemMessageNoHistory(t *testing.T) {
	got := SystemMessage(Input{Profile: fullProfile(), Today: "2026-08-31"})
	assert.Contains(t, got, "Pas d'historique.")
}

func TestSystemMessagePronounDirective(t *testing.T) {
	withPronouns := SystemMessage(Input{Profile: fullProfile(), Today: "2026-08-31"})
	assert.Contains(t, withPronouns, "Utilise ses pronoms (elle)")

	p := fullProfile()
	p.Pronouns = nil
	withoutPronouns := SystemMessage(Input{Profile: p, Today: "2026-08-31"})
	assert.NotContains(t, withoutPronouns, "Utilise ses pronoms")
}

func TestSystemMessageResolvesCustomPersonality(t *testing.T) {
	p := fullProfile()
	p.PersonalityType = strPtr(model.OtherTag)
	p.CustomPersonalityType = strPtr("rêveuse pragmatique")

	got := SystemMessage(Input{Profile: p, Today: "2026-08-31"})
	require.Contains(t, got, "- Type de personnalité : rêveuse pragmatique\n")
	assert.NotContains(t, got, model.OtherTag)
}
