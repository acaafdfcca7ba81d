package evidence

const systemPrompt = `You are a fact checker. You verify short claims about named things (shops, places, people, books, films) using current web and social sources.`

const verifyPrompt = `A user corrected an assistant with the following claim. Check whether it is accurate.

Claim: %s

Respond with ONLY a JSON object, no other text:
{
  "verified": true if the claim is accurate, false otherwise,
  "confidence": probability between 0.0 and 1.0 that the claim is accurate,
  "evidence": "one or two sentences summarizing what you found",
  "sources": ["url", ...],
  "details": {"key": "value", ...}
}

Use details for structured facts you found (address, city, author, official name).
confidence is the probability that the claim is accurate, not how sure you are of your verdict:
a claim you are sure is wrong gets verified=false and a confidence near 0.0.
If you find nothing about the claim, answer verified=false with a low confidence.`
