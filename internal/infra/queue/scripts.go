package queue

import "github.com/redis/go-redis/v9"

// flowScript enqueues a list of jobs in one atomic step. Per job it
// receives three keys (stream, delayed set, dedup key) and four args
// (dedup flag, dedup TTL seconds, ready-at score in unix millis or 0 for
// immediate, encoded envelope). Script atomicity is what makes a flow
// all-or-nothing: Redis never executes it partially.
//
// Jobs whose dedup key already exists are silently skipped; that is the
// duplicate-job-id-is-a-no-op contract the fetcher's idempotent seeding
// relies on.
var flowScript = redis.NewScript(`
local n = tonumber(ARGV[1])
local field = ARGV[2]
local argi = 3
for i = 0, n - 1 do
  local stream = KEYS[3*i + 1]
  local delayed = KEYS[3*i + 2]
  local dedup = KEYS[3*i + 3]
  local hasDedup = ARGV[argi]
  local ttl = tonumber(ARGV[argi + 1])
  local score = tonumber(ARGV[argi + 2])
  local body = ARGV[argi + 3]
  argi = argi + 4

  local ok = true
  if hasDedup == "1" then
    if redis.call("SET", dedup, "1", "NX", "EX", ttl) == false then
      ok = false
    end
  end

  if ok then
    if score > 0 then
      redis.call("ZADD", delayed, score, body)
    else
      redis.call("XADD", stream, "*", field, body)
    end
  end
end
return n
`)

// promoteScript moves due jobs from the delayed set onto the stream.
// Each job is added and removed in the same script so a crash between the
// two operations cannot drop or duplicate it.
var promoteScript = redis.NewScript(`
local delayed = KEYS[1]
local stream = KEYS[2]
local field = ARGV[1]
local now = ARGV[2]
local limit = tonumber(ARGV[3])

local due = redis.call("ZRANGEBYSCORE", delayed, "-inf", now, "LIMIT", 0, limit)
for _, body in ipairs(due) do
  redis.call("XADD", stream, "*", field, body)
  redis.call("ZREM", delayed, body)
end
return #due
`)
