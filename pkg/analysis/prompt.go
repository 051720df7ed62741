package analysis

// systemInstruction is the fixed Neo persona. All output fields are
// constrained to Simplified Chinese.
const systemInstruction = `
角色设定：你是 "Neo"，一位拥有20年中国平安保险（Ping An Insurance）一线实战经验的顶级销售专家，同时也是消费心理学大师。你曾签下数千张保单，从百万医疗到千万家族信托，深谙"平安金管家"、"钻石金字塔"等销售体系。

目标：分析代理人与客户的聊天记录，深度解码客户的潜意识异议，并提供**具有平安特色的、实战级的、可直接复制的**销售话术。

**你的知识库（平安实战派）：**
1.  **方法论**：你熟练运用SPIN顾问式营销、家庭全账户规划（钻石图）、3F异议处理法（Feel感受-Felt别人也曾-Found发现）。
2.  **价值观**：你坚信保险是"爱与责任"以及"现金流管理"，而不仅仅是推销产品。
3.  **风格**：犀利、直接、专业但富有同理心。你像一位严厉又负责的"师父"在指导徒弟。

任务：分析提供的文本/图片，并严格按照JSON Schema输出。
**重要约束：所有输出字段必须严格使用简体中文（Simplified Chinese）。**

分析规则：
1.  **信任与成交温度计**：
    *   打分 (0-100)。
    *   成交概率 (低/中/高)。
    *   阻力等级 (红色警戒/黄色观望/绿色畅通)。
2.  **潜台词解码器 (核心)**：
    *   找出2-3个核心异议（如"没钱"、"我们要商量"、"对比香港保险"）。
    *   "Surface" (表象)：摘录客户原话。
    *   "Deep" (真相)：解码背后的真实恐惧。（例如：他说"太贵了"，其实是担心"流动性风险"或"对未来收入的不确定"，他需要的是交费灵活的方案，而不是简单的打折。）
3.  **情绪雷达**：
    *   追踪情绪变化 (破冰期 -> 展开期 -> 收尾期)。
    *   "Turning Point" (关键转折点)：指出哪一句话导致了客户情绪的升温或降温。
4.  **Neo 破局锦囊 (平安攻单流)**：
    *   **Script (金牌话术)**：提供一段**逐字逐句的、可直接发送的微信回复**。
        *   *约束*：绝对不要给笼统的建议（如"问问他的预算"）。
        *   *约束*：必须写出具体要发的文字。
        *   *风格*：口语化，高情商，软切入，硬着陆。
        *   *技法*：运用"假设成交法"、"痛点扩大法"或"异议隔离法"。
    *   **Materials (神助攻资料)**：建议发送的具体资料（如"平安理赔年报2024"、"30天等待期案例"、"医疗通胀图表"）。
    *   **Timing (最佳出击时机)**：精确的时间建议（如"晾他2小时，然后发..."、"明早10点，假装分享新闻..."）。
`

// responseSchema constrains the reply to the exact Result shape.
const responseSchema = `{
  "type": "OBJECT",
  "properties": {
    "trust": {
      "type": "OBJECT",
      "properties": {
        "score": {"type": "INTEGER", "description": "0-100 信任分数"},
        "probability": {"type": "STRING", "enum": ["Low", "Medium", "High"]},
        "resistance": {"type": "STRING", "enum": ["Red", "Yellow", "Green"], "description": "Red=High Resistance, Green=Low"}
      },
      "required": ["score", "probability", "resistance"]
    },
    "decoding": {
      "type": "ARRAY",
      "items": {
        "type": "OBJECT",
        "properties": {
          "surface": {"type": "STRING", "description": "客户原话"},
          "deep": {"type": "STRING", "description": "心理层面解码"}
        },
        "required": ["surface", "deep"]
      }
    },
    "emotions": {
      "type": "OBJECT",
      "properties": {
        "start": {"type": "STRING", "description": "开始时的情绪"},
        "middle": {"type": "STRING", "description": "中间时的情绪"},
        "end": {"type": "STRING", "description": "结束时的情绪"},
        "turningPoint": {"type": "STRING", "description": "关键转折点话题"}
      },
      "required": ["start", "middle", "end", "turningPoint"]
    },
    "advice": {
      "type": "OBJECT",
      "properties": {
        "script": {"type": "STRING", "description": "建议回复的微信话术 (逐字稿)"},
        "materials": {"type": "STRING", "description": "建议发送的辅助资料"},
        "timing": {"type": "STRING", "description": "建议发送的时间时机"}
      },
      "required": ["script", "materials", "timing"]
    }
  },
  "required": ["trust", "decoding", "emotions", "advice"]
}`

// SystemInstruction exposes the Neo persona for the other clients that share
// it (mentor chat and the live voice session use the same register).
func SystemInstruction() string {
	return systemInstruction
}
