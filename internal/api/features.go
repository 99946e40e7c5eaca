package api

import "net/http"

func (s *Server) handleSentiment(w http.ResponseWriter, r *http.Request) {
	source := r.URL.Query().Get("source")
	if source == "" {
		source = "twitter"
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"error":   "Sentiment analysis requires Twitter/Discord API keys",
		"message": "Add TWITTER_API_KEY or DISCORD_BOT_TOKEN to enable this feature",
		"source":  source,
	})
}

func (s *Server) handleZKMLVerify(w http.ResponseWriter, _ *http.Request) {
	writeComingSoon(w, "zkML verification not yet implemented")
}

func (s *Server) handleDeployModel(w http.ResponseWriter, _ *http.Request) {
	writeComingSoon(w, "Micro-model deployment not yet implemented")
}

func writeComingSoon(w http.ResponseWriter, feature string) {
	writeJSON(w, http.StatusNotImplemented, map[string]string{
		"error":   feature,
		"message": "This feature is coming soon",
	})
}
