// Package emotion adapts the narrative generator (an LLM gateway) into
// fixed-shape emotion and report records. The adapter owns the
// normalization contract: ratios clamped to [0,1], and a zero-value
// fallback on any generator failure so one bad call never fails a lesson.
package emotion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"lesson-insights-go/internal/dates"
	"lesson-insights-go/internal/httpx"
	"lesson-insights-go/internal/logger"
	"lesson-insights-go/internal/types"
)

// ratioScale caps the segment count that maps to a full-scale ratio.
// Historical data was produced with this scale; keep it.
const ratioScale = 10

const systemPrompt = "あなたは教育コーチングの専門家です。レッスンの文字起こしから生徒の感情状態を分析します。"

// Generation temperatures: low for segment extraction, higher for the
// free-form report text.
const (
	emotionTemperature = 0.3
	reportTemperature  = 0.5
)

type completeFunc func(ctx context.Context, system, user string, temperature float64) (string, error)

type Adapter struct {
	gatewayURL string
	apiKey     string
	model      string
	mock       bool
	http       *http.Client
	log        *logrus.Entry

	complete completeFunc
}

func New(gatewayURL, apiKey, model string, mock bool) *Adapter {
	a := &Adapter{
		gatewayURL: gatewayURL,
		apiKey:     apiKey,
		model:      model,
		mock:       mock,
		http:       httpx.Client,
		log:        logger.New().WithField("module", "emotion"),
	}
	a.complete = a.completeHTTP
	return a
}

type segment struct {
	Timestamp string `json:"timestamp"`
	Reason    string `json:"reason"`
}

type emotionPayload struct {
	ConfusionSegments []segment `json:"confusion_segments"`
	StressSegments    []segment `json:"stress_segments"`
	PositiveSegments  []segment `json:"positive_segments"`
}

type reportPayload struct {
	ImprovementAdvice  string   `json:"improvement_advice"`
	RecommendedActions []string `json:"recommended_actions"`
}

// AnalyzeEmotions asks the generator for confusion/stress/positive segments
// and normalizes the answer. Failures degrade to an all-zero record.
func (a *Adapter) AnalyzeEmotions(ctx context.Context, utterances []types.Utterance) types.EmotionResult {
	if a.mock {
		return normalize(emotionPayload{
			ConfusionSegments: []segment{{Timestamp: "01:36", Reason: "曖昧な返答が続いた"}},
			PositiveSegments:  []segment{{Timestamp: "00:46", Reason: "「なるほど、わかりました」と理解を示した"}},
		})
	}

	raw, err := a.complete(ctx, systemPrompt, emotionPrompt(utterances), emotionTemperature)
	if err != nil {
		a.log.WithError(err).Error("emotional signal analysis failed")
		return types.EmotionResult{}
	}

	var payload emotionPayload
	if err := unmarshalLoose(raw, &payload); err != nil {
		a.log.WithError(err).Error("emotional signal response unparseable")
		return types.EmotionResult{}
	}

	a.log.Info("emotional signal analysis complete")
	return normalize(payload)
}

// GenerateReport asks the generator for improvement advice and actions.
// Failures degrade to a fixed fallback record.
func (a *Adapter) GenerateReport(ctx context.Context, kpis types.KPIResult, emotions types.EmotionResult) types.ReportResult {
	fallback := types.ReportResult{ImprovementAdvice: "レポート生成に失敗しました"}

	if a.mock {
		return types.ReportResult{
			ImprovementAdvice:  "発話比率を下げ、生徒の発話機会を増やしましょう。",
			RecommendedActions: "オープンクエスチョンを増やす\n生徒の要約時間を作る\n沈黙を恐れず待つ",
		}
	}

	raw, err := a.complete(ctx, systemPrompt, reportPrompt(kpis, emotions), reportTemperature)
	if err != nil {
		a.log.WithError(err).Error("report generation failed")
		return fallback
	}

	var payload reportPayload
	if err := unmarshalLoose(raw, &payload); err != nil {
		a.log.WithError(err).Error("report response unparseable")
		return fallback
	}

	a.log.Info("report generation complete")
	return types.ReportResult{
		ImprovementAdvice:  payload.ImprovementAdvice,
		RecommendedActions: strings.Join(payload.RecommendedActions, "\n"),
	}
}

func normalize(p emotionPayload) types.EmotionResult {
	return types.EmotionResult{
		ConfusionRatioEst: ratio(len(p.ConfusionSegments)),
		StressRatioEst:    ratio(len(p.StressSegments)),
		PositiveRatioEst:  ratio(len(p.PositiveSegments)),
		ConfusionTop3:     formatSegments(p.ConfusionSegments),
		StressTop3:        formatSegments(p.StressSegments),
		PositiveTop3:      formatSegments(p.PositiveSegments),
	}
}

func ratio(segments int) float64 {
	r := math.Min(float64(segments)/ratioScale, 1)
	return math.Round(r*1000) / 1000
}

func formatSegments(segments []segment) string {
	if len(segments) > 3 {
		segments = segments[:3]
	}
	lines := make([]string, 0, len(segments))
	for _, s := range segments {
		lines = append(lines, fmt.Sprintf("%s: %s", s.Timestamp, s.Reason))
	}
	return strings.Join(lines, "\n")
}

func emotionPrompt(utterances []types.Utterance) string {
	var transcript strings.Builder
	for _, u := range utterances {
		fmt.Fprintf(&transcript, "[%s] %s: %s\n", dates.FormatTimestamp(u.StartMs), u.Speaker, u.Text)
	}

	return fmt.Sprintf(`以下は1対1のオンラインレッスンの文字起こしです。Tutorは講師、Studentは生徒です。

文字起こし:
%s
あなたのタスク:
1. **困惑シグナル (Confusion)**: 生徒が内容を理解できていない、混乱している兆候がある区間を特定してください
2. **ストレスシグナル (Stress)**: 生徒が緊張している、プレッシャーを感じている兆候がある区間を特定してください
3. **ポジティブシグナル (Positive)**: 生徒が理解し、エンゲージしている兆候がある区間を特定してください

以下のJSON形式で回答してください:
{
  "confusion_segments": [{ "timestamp": "mm:ss", "reason": "根拠となる発言や状況" }],
  "stress_segments": [{ "timestamp": "mm:ss", "reason": "根拠となる発言や状況" }],
  "positive_segments": [{ "timestamp": "mm:ss", "reason": "根拠となる発言や状況" }]
}

各カテゴリで最大3つまで、最も顕著な区間を特定してください。`, transcript.String())
}

func reportPrompt(kpis types.KPIResult, emotions types.EmotionResult) string {
	return fmt.Sprintf(`以下はオンラインレッスンの分析結果です:

【発話比率】
- 講師発話比率: %.1f%%
- 生徒発話比率: %.1f%%

【講師の連続発話】
- 最長連続発話: %d秒
- 3分超モノローグ: %d回
- 5分超モノローグ: %d回

【生徒の参加度】
- 発話ターン数: %d回
- 15秒超の沈黙: %d回

【割り込み】
- 講師→生徒: %d回
- 生徒→講師: %d回

【感情シグナル】
- 困惑推定: %.1f%%
- ストレス推定: %.1f%%
- ポジティブ: %.1f%%

アラート: %s

この結果をもとに:
1. improvement_advice: 200〜500文字で改善アドバイスを生成してください
2. recommended_actions: 具体的な改善アクション3つ（各50文字以内）

JSON形式で回答してください:
{
  "improvement_advice": "...",
  "recommended_actions": ["アクション1", "アクション2", "アクション3"]
}`,
		kpis.TalkRatioTutor*100,
		(1-kpis.TalkRatioTutor)*100,
		int(math.Round(float64(kpis.MaxTutorMonologueMs)/1000)),
		kpis.MonologueOver3MinCount,
		kpis.MonologueOver5MinCount,
		kpis.StudentTurns,
		kpis.StudentSilenceOver15sCount,
		kpis.InterruptionsTutorOverStudent,
		kpis.InterruptionsStudentOverTutor,
		emotions.ConfusionRatioEst*100,
		emotions.StressRatioEst*100,
		emotions.PositiveRatioEst*100,
		orNone(kpis.Alerts))
}

func orNone(s string) string {
	if s == "" {
		return "なし"
	}
	return s
}

// completeHTTP calls the chat-completions gateway and returns the raw
// message content.
func (a *Adapter) completeHTTP(ctx context.Context, system, user string, temperature float64) (string, error) {
	body, err := json.Marshal(map[string]interface{}{
		"model": a.model,
		"messages": []map[string]string{
			{"role": "system", "content": system},
			{"role": "user", "content": user},
		},
		"response_format": map[string]string{"type": "json_object"},
		"temperature":     temperature,
	})
	if err != nil {
		return "", err
	}

	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	err = httpx.DoJSON(a.http, 60*time.Second, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.gatewayURL, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+a.apiKey)
		return req, nil
	}, &parsed)
	if err != nil {
		return "", err
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("empty llm response")
	}
	return parsed.Choices[0].Message.Content, nil
}

// unmarshalLoose extracts the outermost JSON object from content that may
// carry prose around it.
func unmarshalLoose(content string, target interface{}) error {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return fmt.Errorf("no JSON object in response")
	}
	return json.Unmarshal([]byte(content[start:end+1]), target)
}
