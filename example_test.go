package redisclient_test

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/pior/redisclient"
	"github.com/pior/redisclient/resp"
)

func Example() {
	client, err := redisclient.New(redisclient.Config{
		Endpoints: []string{"localhost:6379"},
		MaxSize:   10,
		Timeout:   time.Second,
	})
	if err != nil {
		log.Fatal(err)
	}
	defer client.Close()

	ctx := context.Background()

	if _, err := client.Set(ctx, "greeting", "hello"); err != nil {
		log.Printf("Set failed: %v", err)
		return
	}

	value, err := client.Get(ctx, "greeting")
	if err != nil {
		log.Printf("Get failed: %v", err)
		return
	}
	fmt.Printf("greeting = %q\n", value)

	visits, err := client.Incr(ctx, "visits")
	if err != nil {
		log.Printf("Incr failed: %v", err)
		return
	}
	fmt.Printf("visits = %d\n", visits)
}

// Any command can be sent with Do. The reply belongs to the caller.
func ExampleClient_Do() {
	client, err := redisclient.New(redisclient.Config{Endpoints: []string{"localhost"}})
	if err != nil {
		log.Fatal(err)
	}
	defer client.Close()

	reply, err := client.Do(context.Background(), resp.String("LRANGE"), resp.String("queue"), resp.Int(0), resp.Int(-1))
	if err != nil {
		log.Printf("LRANGE failed: %v", err)
		return
	}
	defer reply.Close()

	if err := reply.Err(); err != nil {
		log.Printf("server error: %v", err)
		return
	}

	for i, elem := range reply.Elems() {
		fmt.Printf("%d) %s\n", i+1, elem.Str)
	}
}

func ExampleClient_Commandf() {
	client, err := redisclient.New(redisclient.Config{Endpoints: []string{"localhost"}})
	if err != nil {
		log.Fatal(err)
	}
	defer client.Close()

	reply, err := client.Commandf(context.Background(), "HSET user:%d name %s", 42, "John Smith")
	if err != nil {
		log.Printf("HSET failed: %v", err)
		return
	}
	defer reply.Close()

	fmt.Println(reply)
}

// A function producing a reply hands ownership to its caller with Release.
func ExampleReplyHandle_Release() {
	client, err := redisclient.New(redisclient.Config{Endpoints: []string{"localhost"}})
	if err != nil {
		log.Fatal(err)
	}
	defer client.Close()

	lookup := func(key string) (redisclient.ReplyRef, error) {
		reply, err := client.Do(context.Background(), resp.String("GET"), resp.String(key))
		if err != nil {
			return redisclient.ReplyRef{}, err
		}
		defer reply.Close() // no-op after Release
		return reply.Release(), nil
	}

	ref, err := lookup("greeting")
	if err != nil {
		log.Printf("lookup failed: %v", err)
		return
	}

	reply := redisclient.AdoptReply(ref)
	defer reply.Close()

	fmt.Println(reply.Str())
}

func ExampleNewCircuitBreakerConfig() {
	client, err := redisclient.New(redisclient.Config{
		Endpoints:         []string{"10.0.0.1:6379", "10.0.0.2:6379"},
		NewCircuitBreaker: redisclient.NewCircuitBreakerConfig(1, 10*time.Second, 5*time.Second),
	})
	if err != nil {
		log.Fatal(err)
	}
	defer client.Close()

	if _, err := client.Get(context.Background(), "k"); errors.Is(err, redisclient.ErrPoolExhausted) {
		log.Printf("no server reachable: %v", err)
	}
	fmt.Println(client.BreakerState())
}

func ExampleLoadConfigFile() {
	config, err := redisclient.LoadConfigFile("/etc/myapp/redis.yaml")
	if err != nil {
		log.Fatal(err)
	}

	client, err := redisclient.New(config)
	if err != nil {
		log.Fatal(err)
	}
	defer client.Close()

	stats := client.PoolStats()
	fmt.Printf("connections: %d idle, %d active\n", stats.IdleConns, stats.ActiveConns)
}
