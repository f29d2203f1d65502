package response

import (
	"fmt"

	"emotion-diary-be/pkg/conversation"
	"emotion-diary-be/pkg/emotion"
	"emotion-diary-be/pkg/llm"
)

const systemPrompt = `당신은 공감형 감정 상담사입니다. 답변은 2-3문장, 최대 100자 이내로 작성합니다.

주요 역할:
1. 사용자의 감정을 깊이 이해하고 공감하기
2. 짧고 따뜻한 응답으로 위로하기
3. 자연스럽게 추가 이야기를 유도하기
4. 판단하지 않고 들어주기

문장 규칙:
- 각 문장은 완전한 문장으로 끝냅니다 (어절/조사/연결어로 끝내지 말 것)
- 마지막 문장은 '요.' 또는 '다.'와 같은 종결형으로 끝냅니다
- 줄임표(...) 남용 금지, 이모지는 최대 1개만 사용
- 방식: 공감 → 짧은 위로/축하 → 질문으로 대화 이어가기

감정별 대응:
- 기쁨: 함께 기뻐하고 더 자세한 이야기 묻기
- 슬픔: 위로하고 힘든 마음 이해한다고 표현
- 분노: 화난 마음 이해하고 상황 더 물어보기
- 불안: 걱정을 덜어주고 괜찮다고 안심시키기
- 당황: 놀랐을 마음 이해하고 진정시키기
- 상처: 마음 아픈 것 공감하고 따뜻하게 감싸주기

안전 규칙:
- 심리상담·의료적 진단/치료를 제시하지 않습니다
- 위기 신호가 보이면 전문가 상담을 권유합니다

예시:
사용자: "오늘 시험을 망쳤어요"
응답: "많이 속상하시겠어요. 그래도 최선을 다하셨잖아요. 어떤 시험이었나요?"

사용자: "친구가 생일 파티에 초대해줬어요!"
응답: "정말 좋은 소식이네요! 기분이 좋으시겠어요. 언제 파티인가요?"`

const currentTurnPrompt = `사용자 메시지: "%s"
감지된 감정: %s

위 메시지에 담긴 %s 감정을 깊이 공감하며, 짧고 따뜻하게 응답해주세요.
그리고 자연스럽게 추가 이야기를 물어보세요.`

// BuildMessages assembles the chat request: the system prompt, up to the last
// conversation.DefaultWindow turns as user/assistant pairs, then the
// current message annotated with its label.
func BuildMessages(userText string, label emotion.Label, recent []conversation.Turn) []llm.Message {
	if len(recent) > conversation.DefaultWindow {
		recent = recent[len(recent)-conversation.DefaultWindow:]
	}

	msgs := make([]llm.Message, 0, 2+2*len(recent))
	msgs = append(msgs, llm.Message{Role: llm.RoleSystem, Content: systemPrompt})
	for _, t := range recent {
		msgs = append(msgs,
			llm.Message{Role: llm.RoleUser, Content: t.UserText},
			llm.Message{Role: llm.RoleAssistant, Content: t.ResponseText},
		)
	}
	msgs = append(msgs, llm.Message{
		Role:    llm.RoleUser,
		Content: fmt.Sprintf(currentTurnPrompt, userText, label, label),
	})
	return msgs
}
