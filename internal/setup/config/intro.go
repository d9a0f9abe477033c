package config

// DefaultIntroMessage is sent to a group right after the bot becomes admin there.
const DefaultIntroMessage = `🤖✨ سلام! من ربات چندمنظوره AI LAB هستم

🚀 ساخته‌شده برای مدیریت هوشمند گروه‌ها و کانال‌ها

🔥 قابلیت‌ها:
🛡️ ادمین قدرتمند ضد لینک
🚫 حذف خودکار لینک‌های مزاحم
📢 لینک‌زن انبوه سریع و بدون دردسر
⚡ سبک، سریع و همیشه آماده

📌 مناسب برای گروپ‌ها و کانال‌های حرفه‌ای

📣 کانال سازنده:
👉 https://whatsapp.com/channel/0029VbCJeAJFi8xgTpJB412M

💡 با AI LAB مدیریت رو بسپار به هوش مصنوعی!`
