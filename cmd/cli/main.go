// Package main 是终端陪伴客户端的入口点
package main

import (
	"bufio"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"echo-companion-server/internal/client"
)

var rootCmd = &cobra.Command{
	Use:   "echo",
	Short: "Echo - 终端陪伴日记客户端",
	Long: `Echo 终端客户端

与你的 AI 闺蜜聊天，对话结束后自动总结进你的日记。

直接运行即可开始使用，程序会引导你完成登录。`,
	Run: runInteractive,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	// 全局参数
	rootCmd.PersistentFlags().StringP("server", "s", "", "服务器地址 (默认: http://localhost:8080)")
	rootCmd.PersistentFlags().Bool("register", false, "注册新账号")
}

func initConfig() {
	viper.SetDefault("server_url", "http://localhost:8080")
	viper.SetEnvPrefix("echo")
	viper.AutomaticEnv()

	if server, _ := rootCmd.PersistentFlags().GetString("server"); server != "" {
		viper.Set("server_url", server)
	}
}

// runInteractive 交互式主流程
func runInteractive(cmd *cobra.Command, args []string) {
	printBanner()

	api := client.NewAPI(viper.GetString("server_url"))

	register, _ := cmd.Flags().GetBool("register")
	tokens := doInteractiveLogin(api, register)

	controller := client.NewController(api, tokens.AccessToken)

	fmt.Println("💬 正在开启会话...")
	result, err := controller.Start()
	if err != nil {
		fmt.Fprintf(os.Stderr, "✗ %v\n", err)
		os.Exit(1)
	}

	fmt.Println()
	if n := len(result.LastSummaries); n > 0 {
		fmt.Printf("📖 已载入最近 %d 次对话的记忆\n", n)
	}
	fmt.Println("✅ 会话已开启，开始聊天吧！")
	fmt.Println("   (输入 /quit 或按 Ctrl+C 退出)")
	fmt.Println("─────────────────────────────────")
	fmt.Println()

	// 退出时收尾会话，有内容则生成总结
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println()
		fmt.Println("正在保存对话...")
		controller.Close()
		fmt.Println("✅ 再见！")
		os.Exit(0)
	}()

	chatLoop(controller)

	fmt.Println("正在保存对话...")
	controller.Close()
	fmt.Println("✅ 再见！")
}

func printBanner() {
	fmt.Println()
	fmt.Println("╔════════════════════════════════════════════════╗")
	fmt.Println("║            🌙 Echo 终端陪伴客户端               ║")
	fmt.Println("║                                                ║")
	fmt.Println("║      聊天 · 日记 · 每天更懂你一点                ║")
	fmt.Println("╚════════════════════════════════════════════════╝")
	fmt.Println()
}

func doInteractiveLogin(api *client.API, register bool) *client.TokenPair {
	reader := bufio.NewReader(os.Stdin)

	if register {
		fmt.Println("📱 注册新账号")
	} else {
		fmt.Println("📱 开始登录")
	}
	fmt.Println("─────────────────────────────────")
	fmt.Println()

	fmt.Print("请输入邮箱: ")
	email, _ := reader.ReadString('\n')
	email = strings.TrimSpace(email)
	if email == "" {
		fmt.Fprintln(os.Stderr, "✗ 邮箱不能为空")
		os.Exit(1)
	}

	fmt.Print("请输入密码: ")
	passwordBytes, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		fmt.Fprintf(os.Stderr, "✗ 读取密码失败: %v\n", err)
		os.Exit(1)
	}
	password := strings.TrimSpace(string(passwordBytes))
	if password == "" {
		fmt.Fprintln(os.Stderr, "✗ 密码不能为空")
		os.Exit(1)
	}

	fmt.Println()
	fmt.Println("🔐 正在登录...")

	var tokens *client.TokenPair
	if register {
		tokens, err = api.Register(email, password)
	} else {
		tokens, err = api.Login(email, password)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "✗ 登录失败: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("✅ 登录成功！")
	fmt.Println()
	return tokens
}

// chatLoop 交互式聊天循环
func chatLoop(controller *client.Controller) {
	reader := bufio.NewReader(os.Stdin)

	for {
		fmt.Print("你: ")
		line, err := reader.ReadString('\n')
		if err != nil {
			return
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if line == "/quit" || line == "/exit" {
			return
		}

		fmt.Print("她: ")
		_, err = controller.Send(line, func(delta string) {
			fmt.Print(delta)
		})
		fmt.Println()
		fmt.Println()
		if err != nil {
			fmt.Fprintf(os.Stderr, "✗ %v\n", err)
		}
	}
}
