package taskqueue

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupRedisTest 设置一个miniredis实例用于测试
// 返回Redis地址和一个清理函数
func setupRedisTest(t *testing.T) (string, func()) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to create miniredis: %v", err)
	}

	return mr.Addr(), func() {
		mr.Close()
	}
}

// newTestQueue 创建连接miniredis的测试队列
func newTestQueue(t *testing.T, redisAddr string) Queue {
	cfg := &Config{
		RedisAddr:   redisAddr,
		Concurrency: 2,
		RetryLimit:  2,
		RetryDelay:  time.Second,
	}

	queue, err := NewRedisQueue(cfg)
	require.NoError(t, err)
	return queue
}

// TestNewRedisQueue 测试创建Redis队列实例
func TestNewRedisQueue(t *testing.T) {
	redisAddr, cleanup := setupRedisTest(t)
	defer cleanup()

	queue := newTestQueue(t, redisAddr)
	assert.NotNil(t, queue)

	err := queue.Close()
	assert.NoError(t, err)
}

// TestRedisQueue_Enqueue 测试队列入队功能
func TestRedisQueue_Enqueue(t *testing.T) {
	redisAddr, cleanup := setupRedisTest(t)
	defer cleanup()

	queue := newTestQueue(t, redisAddr)
	defer queue.Close()

	ctx := context.Background()
	payload := &ValidatePayload{
		RunID:    "run-123",
		FilePath: "2026/01/01/deck.pptx",
		FileName: "deck.pptx",
		FileType: "pptx",
	}

	taskID, err := queue.Enqueue(ctx, TaskValidateDocument, "run-123", payload)
	assert.NoError(t, err)
	assert.NotEmpty(t, taskID)

	// 验证任务已入队
	task, err := queue.GetTask(ctx, taskID)
	assert.NoError(t, err)
	assert.Equal(t, taskID, task.ID)
	assert.Equal(t, TaskValidateDocument, task.Type)
	assert.Equal(t, "run-123", task.RunID)
	assert.Equal(t, StatusPending, task.Status)
	assert.NotNil(t, task.Payload)

	// 验证载荷可以被解析回来
	var parsed ValidatePayload
	require.NoError(t, UnmarshalPayload(task.Payload, &parsed))
	assert.Equal(t, "deck.pptx", parsed.FileName)
}

// TestRedisQueue_GetTask 测试获取任务信息
func TestRedisQueue_GetTask(t *testing.T) {
	redisAddr, cleanup := setupRedisTest(t)
	defer cleanup()

	queue := newTestQueue(t, redisAddr)
	defer queue.Close()

	ctx := context.Background()

	// 获取不存在的任务
	task, err := queue.GetTask(ctx, "non-existing")
	assert.ErrorIs(t, err, ErrTaskNotFound)
	assert.Nil(t, task)
}

// TestRedisQueue_GetTasksByRun 测试按运行ID获取任务
func TestRedisQueue_GetTasksByRun(t *testing.T) {
	redisAddr, cleanup := setupRedisTest(t)
	defer cleanup()

	queue := newTestQueue(t, redisAddr)
	defer queue.Close()

	ctx := context.Background()
	payload := &ValidatePayload{RunID: "run-456", FileName: "paper.docx", FileType: "docx"}

	taskID1, err := queue.Enqueue(ctx, TaskValidateDocument, "run-456", payload)
	require.NoError(t, err)
	taskID2, err := queue.Enqueue(ctx, TaskValidateDocument, "run-456", payload)
	require.NoError(t, err)

	tasks, err := queue.GetTasksByRun(ctx, "run-456")
	assert.NoError(t, err)
	assert.Len(t, tasks, 2)

	ids := []string{tasks[0].ID, tasks[1].ID}
	assert.Contains(t, ids, taskID1)
	assert.Contains(t, ids, taskID2)

	// 无关运行返回空列表
	tasks, err = queue.GetTasksByRun(ctx, "run-other")
	assert.NoError(t, err)
	assert.Empty(t, tasks)
}

// TestRedisQueue_UpdateTaskStatus 测试任务状态更新
func TestRedisQueue_UpdateTaskStatus(t *testing.T) {
	redisAddr, cleanup := setupRedisTest(t)
	defer cleanup()

	queue := newTestQueue(t, redisAddr)
	defer queue.Close()

	ctx := context.Background()
	taskID, err := queue.Enqueue(ctx, TaskValidateDocument, "run-789", &ValidatePayload{RunID: "run-789"})
	require.NoError(t, err)

	// 更新为处理中
	err = queue.UpdateTaskStatus(ctx, taskID, StatusProcessing, nil, "")
	assert.NoError(t, err)

	task, err := queue.GetTask(ctx, taskID)
	require.NoError(t, err)
	assert.Equal(t, StatusProcessing, task.Status)
	assert.NotNil(t, task.StartedAt, "StartedAt should be set when processing starts")

	// 更新为已完成，附带结果
	result := &ValidateResult{
		RunID:         "run-789",
		TotalFindings: 3,
		GreenCount:    1,
		YellowCount:   1,
		RedCount:      1,
	}
	err = queue.UpdateTaskStatus(ctx, taskID, StatusCompleted, result, "")
	assert.NoError(t, err)

	task, err = queue.GetTask(ctx, taskID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, task.Status)
	assert.NotNil(t, task.CompletedAt, "CompletedAt should be set on completion")

	var parsed ValidateResult
	require.NoError(t, UnmarshalPayload(task.Result, &parsed))
	assert.Equal(t, 3, parsed.TotalFindings)

	// 更新为失败，附带错误消息
	err = queue.UpdateTaskStatus(ctx, taskID, StatusFailed, nil, "processing error")
	assert.NoError(t, err)

	task, err = queue.GetTask(ctx, taskID)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, task.Status)
	assert.Equal(t, "processing error", task.Error)
}

// TestRedisQueue_WaitForTask 测试等待任务完成
func TestRedisQueue_WaitForTask(t *testing.T) {
	redisAddr, cleanup := setupRedisTest(t)
	defer cleanup()

	queue := newTestQueue(t, redisAddr)
	defer queue.Close()

	ctx := context.Background()
	taskID, err := queue.Enqueue(ctx, TaskValidateDocument, "run-wait", &ValidatePayload{RunID: "run-wait"})
	require.NoError(t, err)

	// 已完成的任务立即返回
	require.NoError(t, queue.UpdateTaskStatus(ctx, taskID, StatusCompleted, nil, ""))

	task, err := queue.WaitForTask(ctx, taskID, 5*time.Second)
	assert.NoError(t, err)
	assert.Equal(t, StatusCompleted, task.Status)

	// 等待不存在的任务返回错误
	_, err = queue.WaitForTask(ctx, "non-existing", time.Second)
	assert.Error(t, err)
}

// TestRedisQueue_DeleteTask 测试删除任务
func TestRedisQueue_DeleteTask(t *testing.T) {
	redisAddr, cleanup := setupRedisTest(t)
	defer cleanup()

	queue := newTestQueue(t, redisAddr)
	defer queue.Close()

	ctx := context.Background()
	taskID, err := queue.Enqueue(ctx, TaskValidateDocument, "run-del", &ValidatePayload{RunID: "run-del"})
	require.NoError(t, err)

	err = queue.DeleteTask(ctx, taskID)
	assert.NoError(t, err)

	// 删除后任务不可见
	_, err = queue.GetTask(ctx, taskID)
	assert.ErrorIs(t, err, ErrTaskNotFound)

	// 运行任务集合也已清空
	tasks, err := queue.GetTasksByRun(ctx, "run-del")
	assert.NoError(t, err)
	assert.Empty(t, tasks)
}

// TestMarshalPayload 测试载荷序列化
func TestMarshalPayload(t *testing.T) {
	// nil载荷序列化为空对象
	data, err := MarshalPayload(nil)
	assert.NoError(t, err)
	assert.Equal(t, "{}", string(data))

	// 空数据反序列化不报错
	var payload ValidatePayload
	assert.NoError(t, UnmarshalPayload(nil, &payload))
}
