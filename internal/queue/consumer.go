// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package queue

import (
	stdctx "context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/zt-a/refgen-ai-backend/internal/platform/constants"
	"github.com/zt-a/refgen-ai-backend/internal/platform/metrics"
)

// # Consumer

// Handler runs one generation job. A returned error marks the task failed. An
// error wrapping [ErrSkipped] also marks it failed but counts as skipped.
type Handler func(context stdctx.Context, taskID string, essayID int64) error

// Job is a decoded stream entry.
type Job struct {
	MessageID string
	TaskID    string
	EssayID   int64
}

const (
	defaultBlockTimeout = 5 * time.Second
	errorBackoff        = time.Second
)

// Consumer reads generation jobs through the shared consumer group. It
// processes one message at a time and never redelivers a failed job.
type Consumer struct {
	queue   *Queue
	group   string
	name    string
	block   time.Duration
	handler Handler
	logger  *slog.Logger
}

// NewConsumer constructs a [Consumer] that identifies itself as name.
func NewConsumer(queue *Queue, name string, handler Handler, logger *slog.Logger) *Consumer {
	return &Consumer{
		queue:   queue,
		group:   constants.ConsumerGroupWorkers,
		name:    name,
		block:   defaultBlockTimeout,
		handler: handler,
		logger:  logger,
	}
}

/*
Run consumes the stream until the context is cancelled.

Returns:
  - error: nil on cancellation, or a failure to create the consumer group
*/
func (consumer *Consumer) Run(context stdctx.Context) error {
	if err := consumer.ensureGroup(context); err != nil {
		return err
	}

	consumer.logger.Info("consumer_started",
		slog.String("stream", consumer.queue.stream),
		slog.String("group", consumer.group),
		slog.String("consumer", consumer.name),
	)

	for {
		if context.Err() != nil {
			consumer.logger.Info("consumer_stopped", slog.String("consumer", consumer.name))
			return nil
		}

		streams, err := consumer.queue.client.XReadGroup(context, &redis.XReadGroupArgs{
			Group:    consumer.group,
			Consumer: consumer.name,
			Streams:  []string{consumer.queue.stream, ">"},
			Count:    1,
			Block:    consumer.block,
		}).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) || context.Err() != nil {
				continue
			}
			consumer.logger.Error("consumer_read_failed", slog.Any("error", err))
			sleep(context, errorBackoff)
			continue
		}

		for _, stream := range streams {
			for _, message := range stream.Messages {
				consumer.process(context, message)
			}
		}
	}
}

// ensureGroup creates the consumer group and stream if they do not exist.
func (consumer *Consumer) ensureGroup(context stdctx.Context) error {
	err := consumer.queue.client.XGroupCreateMkStream(context, consumer.queue.stream, consumer.group, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("queue: create consumer group: %w", err)
	}
	return nil
}

// process runs the handler for one message, records the outcome and acknowledges it.
func (consumer *Consumer) process(context stdctx.Context, message redis.XMessage) {
	logger := consumer.logger.With(slog.String("message_id", message.ID))

	job, err := decodeJob(message)
	if err != nil {
		logger.Error("job_decode_failed", slog.Any("error", err))
		consumer.ack(context, message.ID, logger)
		metrics.QueueMessagesProcessed.WithLabelValues(consumer.queue.stream, metrics.OutcomeSkipped).Inc()
		return
	}

	logger = logger.With(slog.String("task_id", job.TaskID), slog.Int64("essay_id", job.EssayID))

	current, err := consumer.queue.State(context, job.TaskID)
	if err != nil {
		logger.Warn("task_state_read_failed", slog.Any("error", err))
	} else if current.State.IsFinished() {
		logger.Info("job_already_finished", slog.String("state", string(current.State)))
		consumer.ack(context, message.ID, logger)
		metrics.QueueMessagesProcessed.WithLabelValues(consumer.queue.stream, metrics.OutcomeSkipped).Inc()
		return
	}

	if err := consumer.queue.SetState(context, job.TaskID, StateStarted, ""); err != nil {
		logger.Warn("task_state_update_failed", slog.Any("error", err))
	}

	outcome := metrics.OutcomeSuccess
	if err := consumer.handler(context, job.TaskID, job.EssayID); err != nil {
		outcome = metrics.OutcomeFailure
		if errors.Is(err, ErrSkipped) {
			outcome = metrics.OutcomeSkipped
			logger.Info("job_skipped", slog.Any("reason", err))
		} else {
			logger.Error("job_failed", slog.Any("error", err))
		}
		stateCtx, cancel := stdctx.WithTimeout(stdctx.WithoutCancel(context), 2*time.Second)
		defer cancel()
		if stateErr := consumer.queue.SetState(stateCtx, job.TaskID, StateFailure, err.Error()); stateErr != nil {
			logger.Warn("task_state_update_failed", slog.Any("error", stateErr))
		}
	} else {
		logger.Info("job_completed")
		if stateErr := consumer.queue.SetState(context, job.TaskID, StateSuccess, ""); stateErr != nil {
			logger.Warn("task_state_update_failed", slog.Any("error", stateErr))
		}
	}

	consumer.ack(context, message.ID, logger)
	metrics.QueueMessagesProcessed.WithLabelValues(consumer.queue.stream, outcome).Inc()
}

// ack acknowledges a message. A detached context lets shutdown still ack.
func (consumer *Consumer) ack(context stdctx.Context, messageID string, logger *slog.Logger) {
	ackCtx, cancel := stdctx.WithTimeout(stdctx.WithoutCancel(context), 2*time.Second)
	defer cancel()

	if err := consumer.queue.client.XAck(ackCtx, consumer.queue.stream, consumer.group, messageID).Err(); err != nil {
		logger.Warn("job_ack_failed", slog.Any("error", err))
	}
}

// decodeJob extracts the task id and essay id from a stream entry.
func decodeJob(message redis.XMessage) (Job, error) {
	job := Job{MessageID: message.ID}

	taskID, ok := message.Values[fieldTaskID].(string)
	if !ok || taskID == "" {
		return job, fmt.Errorf("queue: message %s has no task id", message.ID)
	}
	job.TaskID = taskID

	rawEssayID, ok := message.Values[fieldEssayID].(string)
	if !ok {
		return job, fmt.Errorf("queue: message %s has no essay id", message.ID)
	}
	essayID, err := strconv.ParseInt(rawEssayID, 10, 64)
	if err != nil || essayID <= 0 {
		return job, fmt.Errorf("queue: message %s has invalid essay id %q", message.ID, rawEssayID)
	}
	job.EssayID = essayID

	return job, nil
}

func sleep(context stdctx.Context, duration time.Duration) {
	timer := time.NewTimer(duration)
	defer timer.Stop()
	select {
	case <-context.Done():
	case <-timer.C:
	}
}
