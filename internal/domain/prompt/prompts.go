package prompt

import "strings"

// Version tags summaries with the prompt revision that produced them.
const Version = "v2"

const summaryTemplate = `다음 YouTube 영상의 자막을 바탕으로 한국어로 구조화된 요약을 작성해주세요.

요약 형식:
1. **핵심 주제**: 영상의 메인 주제를 1-2문장으로 설명
2. **주요 내용**:
   - 중요한 포인트들을 불릿 포인트로 정리
   - 시간대별 주요 내용이 있다면 [MM:SS] 형식으로 표시
3. **핵심 메시지**: 영상에서 전달하고자 하는 핵심 메시지나 결론

자막 내용:
{context}

위 내용을 바탕으로 체계적이고 이해하기 쉬운 요약을 한국어로 작성해주세요.`

const chatSystemTemplate = `당신은 YouTube 영상의 자막을 바탕으로 질문에 답변하는 AI 어시스턴트입니다.

다음 규칙을 따라주세요:
1. 제공된 자막 내용을 바탕으로만 답변하세요
2. 자막에 없는 내용에 대해서는 "자막에서 해당 내용을 찾을 수 없습니다"라고 답변하세요
3. 답변할 때 관련된 시간대가 있다면 [MM:SS] 형식으로 표시해주세요
4. 한국어로 친근하고 정확하게 답변하세요
5. 질문이 영상 내용과 관련이 없다면 영상 내용으로 돌아가도록 안내하세요

영상 자막 내용:
{context}

위 자막 내용을 참고하여 사용자의 질문에 답변해주세요.`

// SummaryPrompt embeds the context block into the summarization prompt.
func SummaryPrompt(contextBlock string) string {
	return strings.ReplaceAll(summaryTemplate, "{context}", contextBlock)
}

// ChatSystemPrompt embeds the context block into the Q&A system prompt.
func ChatSystemPrompt(contextBlock string) string {
	return strings.ReplaceAll(chatSystemTemplate, "{context}", contextBlock)
}
