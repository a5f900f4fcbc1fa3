package rest

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/Sudhakarkrish2002/task-1-backend/pkg/httputil"
)

type publishRequest struct {
	Topic   string `json:"topic"`
	Message any    `json:"message"`
}

type subscribeRequest struct {
	Topic  string   `json:"topic"`
	Topics []string `json:"topics"`
}

// topicList merges the single-topic and multi-topic forms of the body.
func (sr subscribeRequest) topicList() []string {
	topics := make([]string, 0, len(sr.Topics)+1)
	if sr.Topic != "" {
		topics = append(topics, sr.Topic)
	}
	for _, t := range sr.Topics {
		if t = strings.TrimSpace(t); t != "" {
			topics = append(topics, t)
		}
	}
	return topics
}

func (s *Server) handleBrokerHealth(w http.ResponseWriter, r *http.Request) {
	httputil.JSON(w, http.StatusOK, s.broker.Health())
}

func (s *Server) handleBrokerPublish(w http.ResponseWriter, r *http.Request) {
	var req publishRequest
	if err := httputil.BindOrError(r, w, &req); err != nil {
		return
	}
	if req.Topic == "" {
		httputil.Error(w, http.StatusBadRequest, "topic is required")
		return
	}

	if err := s.broker.Publish(req.Topic, req.Message); err != nil {
		s.logger.Error("publish failed", zap.String("topic", req.Topic), zap.Error(err))
		httputil.Error(w, http.StatusBadGateway, err.Error())
		return
	}
	httputil.JSON(w, http.StatusAccepted, map[string]string{"status": "queued", "topic": req.Topic})
}

func (s *Server) handleBrokerSubscribe(w http.ResponseWriter, r *http.Request) {
	var req subscribeRequest
	if err := httputil.BindOrError(r, w, &req); err != nil {
		return
	}
	topics := req.topicList()
	if len(topics) == 0 {
		httputil.Error(w, http.StatusBadRequest, "topic is required")
		return
	}

	if err := s.broker.Subscribe(topics...); err != nil {
		httputil.Error(w, http.StatusBadGateway, err.Error())
		return
	}
	httputil.JSON(w, http.StatusOK, s.broker.Health())
}

func (s *Server) handleBrokerUnsubscribe(w http.ResponseWriter, r *http.Request) {
	var req subscribeRequest
	if err := httputil.BindOrError(r, w, &req); err != nil {
		return
	}
	topics := req.topicList()
	if len(topics) == 0 {
		httputil.Error(w, http.StatusBadRequest, "topic is required")
		return
	}

	if err := s.broker.Unsubscribe(topics...); err != nil {
		httputil.Error(w, http.StatusBadGateway, err.Error())
		return
	}
	httputil.JSON(w, http.StatusOK, s.broker.Health())
}

func (s *Server) handleBrokerMessages(w http.ResponseWriter, r *http.Request) {
	httputil.JSON(w, http.StatusOK, s.broker.Cached())
}

func (s *Server) handleBrokerMessage(w http.ResponseWriter, r *http.Request) {
	topic := r.PathValue("topic")
	msg, ok := s.broker.Latest(topic)
	if !ok {
		httputil.Error(w, http.StatusNotFound, "no message cached for topic")
		return
	}
	httputil.JSON(w, http.StatusOK, msg)
}
