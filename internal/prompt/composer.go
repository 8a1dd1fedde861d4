// Package prompt 负责组装聊天轮次使用的系统提示词
// 纯函数：相同输入永远产出逐字节相同的输出，不读时钟、不碰存储，
// "今天"作为参数传入，方便测试钉死日期
package prompt

import (
	"fmt"
	"strings"

	"echo-companion-server/internal/model"
)

// FallbackSystemMessage 资料不完整时的通用系统提示词
// 个性化路径至少需要昵称，没有昵称就退回普通助手
const FallbackSystemMessage = "You are a helpful assistant"

// MaxSummaries 注入历史区块的摘要上限
const MaxSummaries = 10

// MaxRecentCheckins 今日之外注入的历史签到上限
const MaxRecentCheckins = 2

// Input 组装系统提示词所需的全部上下文
type Input struct {
	// Profile 用户资料，nil 或名字为空时走通用兜底
	Profile *model.Profile

	// Summaries 最近的会话摘要，最新在前，超出 MaxSummaries 的部分被忽略
	Summaries []model.SessionSummary

	// Today 固定下来的"今天"，格式 "2006-01-02"
	// 全函数唯一的日期依赖就是拿它和签到日期比较
	Today string

	// Checkins 最近的签到，日期倒序
	// 日期等于 Today 的条目是今日签到，其余取最近 MaxRecentCheckins 条
	Checkins []model.CheckIn
}

// todayCheckin 按日期把签到拆成 今日 + 历史
func (in Input) todayCheckin() (today *model.CheckIn, recent []model.CheckIn) {
	for i := range in.Checkins {
		if in.Checkins[i].Date == in.Today && today == nil {
			today = &in.Checkins[i]
			continue
		}
		if len(recent) < MaxRecentCheckins {
			recent = append(recent, in.Checkins[i])
		}
	}
	return today, recent
}

// SystemMessage 组装一条 system 角色的提示词
// 结构固定：资料区块（每个字段一行，空值写 "non précisé"，
// 后面的指令按位置引用这些行，所以一行都不能省）、签到区块、
// 历史区块、人设指令，最后是两条条件触发的附加指令
func SystemMessage(in Input) string {
	if !in.Profile.IsComplete() {
		return FallbackSystemMessage
	}
	p := in.Profile
	today, recent := in.todayCheckin()

	var b strings.Builder

	b.WriteString("Tu es la confidente intime de la personne suivante. Voici son profil :\n")
	writeField(&b, "Prénom", p.Name)
	writeField(&b, "Âge", deref(p.Age))
	writeField(&b, "Pronoms", deref(p.Pronouns))
	writeField(&b, "Profession", deref(p.Profession))
	writeField(&b, "Routine quotidienne", deref(p.DailyRoutine))
	writeField(&b, "Rituels bien-être", deref(p.SelfCareHabits))
	writeField(&b, "Déclencheurs d'humeur", deref(p.MoodTriggers))
	writeField(&b, "Objectifs", deref(p.Goals))
	writeField(&b, "Citations préférées", deref(p.FavoriteQuotes))
	writeField(&b, "Type de personnalité", p.ResolvedPersonalityType())
	writeField(&b, "Centres d'intérêt", deref(p.Interests))

	writeCheckinBlock(&b, today, recent)
	writeHistoryBlock(&b, in.Summaries)
	writePersona(&b, p, today)

	return b.String()
}

// writeField 渲染资料区块的一行
// 空值不允许省略行，统一写 "non précisé"
func writeField(b *strings.Builder, label, value string) {
	if value == "" {
		value = "non précisé"
	}
	fmt.Fprintf(b, "- %s : %s\n", label, value)
}

// writeCheckinBlock 渲染签到区块：今天的心情 + 最近的历史签到
func writeCheckinBlock(b *strings.Builder, today *model.CheckIn, recent []model.CheckIn) {
	b.WriteString("\nCheck-in mental :\n")
	if today != nil {
		fmt.Fprintf(b, "Aujourd'hui (%s), elle se sent : %s", today.Date, today.Label)
		if today.Secondary != "" {
			fmt.Fprintf(b, " (%s)", today.Secondary)
		}
		b.WriteString("\n")
	} else {
		b.WriteString("Pas de check-in aujourd'hui.\n")
	}

	for i := range recent {
		fmt.Fprintf(b, "- %s : %s\n", recent[i].Date, recent[i].Label)
	}
}

// writeHistoryBlock 渲染历史区块
// 每条摘要一行，固定格式: [日期] 情绪 | 话题 | 关键信息 | 概括
func writeHistoryBlock(b *strings.Builder, summaries []model.SessionSummary) {
	b.WriteString("\nHistorique des sessions précédentes :\n")
	if len(summaries) == 0 {
		b.WriteString("Pas d'historique.\n")
		return
	}
	if len(summaries) > MaxSummaries {
		summaries = summaries[:MaxSummaries]
	}
	for i := range summaries {
		s := summaries[i]
		fmt.Fprintf(b, "[%s] %s | %s | %s | %s\n",
			s.Date,
			s.Humeur,
			strings.Join(s.Sujets, ", "),
			strings.Join(s.InfosCles, ", "),
			s.Resume,
		)
	}
}

// writePersona 渲染人设指令和两条条件附加指令
func writePersona(b *strings.Builder, p *model.Profile, today *model.CheckIn) {
	b.WriteString("\nTon rôle : tu es une confidente empathique et encourageante. " +
		"Respecte ses rituels de bien-être, sois attentive à ses déclencheurs d'humeur, " +
		"et fais écho à ses citations préférées quand c'est pertinent. " +
		"Adopte un ton intime et informel, tutoie-la, et utilise des emojis avec modération.\n")

	if today != nil {
		fmt.Fprintf(b, "Adapte ton ton à son humeur du jour (%s).\n", today.Label)
	}
	if p.Pronouns != nil && *p.Pronouns != "" {
		fmt.Fprintf(b, "Utilise ses pronoms (%s) dans tes formulations.\n", *p.Pronouns)
	}
}

// deref 解引用可选字段，nil 视为空串
func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
